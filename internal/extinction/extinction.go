// Package extinction appends interstellar dust extinction columns to
// a finished catalog. Reddening comes from the dust column density
// each star inherits from its parent particle: E(B-V) = 10^log10NH /
// qDust, A_0 = R_V * E(B-V), and per-band extinctions follow the band
// system's coefficient model in intrinsic color and A_0.
//
// The processor honors the append-only contract: intrinsic magnitudes
// are never touched; extincted magnitudes land in new columns.
package extinction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/photometry"
)

// ErrMissingBand indicates the catalog lacks a band the extinction
// model needs. A missing magnitude must never be read as zero.
var ErrMissingBand = errors.New("extinction: required band not in catalog")

// Defaults mirror the upstream pipeline's constants.
const (
	// DefaultQDust is the N_H to E(B-V) ratio (N_HI + 2 N_H2 per
	// magnitude of color excess).
	DefaultQDust = 2.5e22

	// DefaultRV is the total-to-selective extinction ratio
	// A_V / E(B-V).
	DefaultRV = 3.1
)

// Params configure the extinction model. Zero values select the
// documented defaults.
type Params struct {
	QDust float64
	RV    float64
}

// Processor appends A_0, per-band A_<band>, and <band>_ext columns.
type Processor struct {
	sys photometry.System
	p   Params
}

// New returns an extinction processor for the given band system.
func New(sys photometry.System, p Params) *Processor {
	if p.QDust == 0 {
		p.QDust = DefaultQDust
	}
	if p.RV == 0 {
		p.RV = DefaultRV
	}
	return &Processor{sys: sys, p: p}
}

func (pr *Processor) Name() string { return "extinction" }

// Process computes extinctions for every star. Stars without a dust
// column (NaN log10NH) get NaN extinction values rather than an error.
func (pr *Processor) Process(ctx context.Context, c *catalog.Catalog) error {
	bands, err := pr.catalogBands(c)
	if err != nil {
		return err
	}

	n := c.Len()
	a0 := make([]float64, n)
	perBand := make(map[string][]float64, len(bands))
	extincted := make(map[string][]float64, len(bands))
	for _, band := range bands {
		perBand[band] = make([]float64, n)
		extincted[band] = make([]float64, n)
	}

	for i, st := range c.Stars {
		if err := ctx.Err(); err != nil {
			return err
		}

		if math.IsNaN(st.Log10NH) {
			a0[i] = math.NaN()
			for _, band := range bands {
				perBand[band][i] = math.NaN()
				extincted[band][i] = math.NaN()
			}
			continue
		}

		ebv := math.Pow(10, st.Log10NH) / pr.p.QDust
		a0[i] = pr.p.RV * ebv

		color := st.Mags[pr.sys.ColorBands[0]] - st.Mags[pr.sys.ColorBands[1]]
		ratios := pr.sys.ExtinctionCoeff(color, a0[i])
		for _, band := range bands {
			a := ratios[band] * a0[i]
			perBand[band][i] = a
			extincted[band][i] = st.Mags[band] + a
		}
	}

	if err := c.AddColumn("A_0", a0); err != nil {
		return err
	}
	for _, band := range bands {
		if err := c.AddColumn("A_"+band, perBand[band]); err != nil {
			return err
		}
		if err := c.AddColumn(band+"_ext", extincted[band]); err != nil {
			return err
		}
	}
	return nil
}

// catalogBands restricts the processor to bands the catalog actually
// carries. Both color bands are mandatory: without them the
// coefficient polynomial has no intrinsic color to evaluate.
func (pr *Processor) catalogBands(c *catalog.Catalog) ([]string, error) {
	have := make(map[string]bool, len(c.Bands))
	for _, band := range c.Bands {
		have[band] = true
	}
	for _, band := range pr.sys.ColorBands {
		if !have[band] {
			return nil, fmt.Errorf("%w: %s", ErrMissingBand, band)
		}
	}
	bands := make([]string, 0, len(pr.sys.Bands))
	for _, band := range pr.sys.Bands {
		if have[band] {
			bands = append(bands, band)
		}
	}
	return bands, nil
}
