package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/galsynth/internal/catalog"
)

// Histogram holds binned star counts. Edges has one more entry than
// Counts; bin i covers [Edges[i], Edges[i+1]).
type Histogram struct {
	Edges  []float64
	Counts []float64
}

// Centers returns the bin midpoints.
func (h *Histogram) Centers() []float64 {
	centers := make([]float64, len(h.Counts))
	for i := range centers {
		centers[i] = 0.5 * (h.Edges[i] + h.Edges[i+1])
	}
	return centers
}

// LuminosityFunction bins the catalog by magnitude in the given band.
// Stars with a NaN magnitude are skipped. An observed column appended
// by a post-processor can be selected by its column name instead of a
// band name.
func LuminosityFunction(cat *catalog.Catalog, band string, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("analysis: need at least one bin, got %d", bins)
	}

	mags, err := magnitudes(cat, band)
	if err != nil {
		return nil, err
	}
	if len(mags) == 0 {
		return nil, fmt.Errorf("analysis: no finite magnitudes in %s", band)
	}

	lo := floats.Min(mags)
	hi := floats.Max(mags)
	if lo == hi {
		// Degenerate range: one bin wide enough to hold everything.
		lo -= 0.5
		hi += 0.5
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)

	// stat.Histogram's top divider is exclusive; nudge it so the
	// faintest star stays in the last bin.
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted(mags), nil)
	return &Histogram{Edges: edges, Counts: counts}, nil
}

func magnitudes(cat *catalog.Catalog, band string) ([]float64, error) {
	var read func(i int) float64

	if col, ok := cat.Column(band); ok {
		read = func(i int) float64 { return col[i] }
	} else {
		found := false
		for _, b := range cat.Bands {
			if b == band {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("analysis: unknown band or column %s", band)
		}
		read = func(i int) float64 { return cat.Stars[i].Mags[band] }
	}

	mags := make([]float64, 0, cat.Len())
	for i := range cat.Stars {
		if m := read(i); !math.IsNaN(m) {
			mags = append(mags, m)
		}
	}
	return mags, nil
}

func sorted(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	return out
}
