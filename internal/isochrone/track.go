// Package isochrone holds tabulated stellar-evolution tracks and
// interpolates absolute magnitudes over the (initial mass, age,
// metallicity) grid. Tracks are immutable after construction and safe
// for concurrent lookups.
package isochrone

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfRange indicates a lookup outside the track's grid coverage.
// No extrapolation is performed; the physics outside the table is
// undefined.
var ErrOutOfRange = errors.New("isochrone: coordinates outside track coverage")

// ErrUnknownBand indicates a request for a band the track does not
// tabulate. This is a configuration error, not a runtime one.
var ErrUnknownBand = errors.New("isochrone: band not loaded")

// OutOfRangeError reports the offending lookup coordinates.
type OutOfRangeError struct {
	Mass, Age, FeH float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("isochrone: (mass=%g, age=%g, feh=%g) outside track coverage",
		e.Mass, e.Age, e.FeH)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// Track is a read-only sampled grid mapping (initial mass in Msun,
// log10 age in yr, [Fe/H] in dex) to one absolute magnitude per band.
// Values are stored flattened with mass varying slowest:
// index = (i*len(ages) + j)*len(fehs) + k.
type Track struct {
	masses []float64
	ages   []float64
	fehs   []float64
	bands  map[string][]float64
	names  []string
}

// NewTrack validates grid axes and per-band tables and returns a
// track. Axes must be strictly ascending and non-empty; every band
// table must hold len(masses)*len(ages)*len(fehs) values.
func NewTrack(masses, ages, fehs []float64, bands map[string][]float64) (*Track, error) {
	for _, ax := range []struct {
		name string
		vals []float64
	}{{"mass", masses}, {"age", ages}, {"feh", fehs}} {
		if len(ax.vals) == 0 {
			return nil, fmt.Errorf("isochrone: empty %s axis", ax.name)
		}
		for i := 1; i < len(ax.vals); i++ {
			if ax.vals[i] <= ax.vals[i-1] {
				return nil, fmt.Errorf("isochrone: %s axis not strictly ascending at %d",
					ax.name, i)
			}
		}
	}
	if len(bands) == 0 {
		return nil, errors.New("isochrone: no bands given")
	}

	want := len(masses) * len(ages) * len(fehs)
	names := make([]string, 0, len(bands))
	for name, vals := range bands {
		if len(vals) != want {
			return nil, fmt.Errorf("isochrone: band %s has %d values, want %d",
				name, len(vals), want)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return &Track{
		masses: append([]float64(nil), masses...),
		ages:   append([]float64(nil), ages...),
		fehs:   append([]float64(nil), fehs...),
		bands:  bands,
		names:  names,
	}, nil
}

// Bands lists the tabulated band names in sorted order.
func (t *Track) Bands() []string { return t.names }

// HasBand reports whether the track tabulates the named band.
func (t *Track) HasBand(name string) bool {
	_, ok := t.bands[name]
	return ok
}

// MassRange returns the covered initial mass interval.
func (t *Track) MassRange() (lo, hi float64) {
	return t.masses[0], t.masses[len(t.masses)-1]
}

// AgeRange returns the covered log10-age interval.
func (t *Track) AgeRange() (lo, hi float64) {
	return t.ages[0], t.ages[len(t.ages)-1]
}

// FeHRange returns the covered metallicity interval.
func (t *Track) FeHRange() (lo, hi float64) {
	return t.fehs[0], t.fehs[len(t.fehs)-1]
}

// locate finds the cell index and interpolation fraction of x on a
// strictly ascending axis. Coordinates exactly on the upper boundary
// clamp into the last cell with fraction 1, so grid nodes round-trip
// to tabulated values.
func locate(axis []float64, x float64) (int, float64, bool) {
	n := len(axis)
	if x < axis[0] || x > axis[n-1] {
		return 0, 0, false
	}
	if n == 1 {
		return 0, 0, true
	}
	i := sort.SearchFloat64s(axis, x)
	if i > 0 && (i == n || axis[i] != x) {
		i--
	}
	if i == n-1 {
		i--
		return i, 1, true
	}
	return i, (x - axis[i]) / (axis[i+1] - axis[i]), true
}

func (t *Track) at(vals []float64, i, j, k int) float64 {
	return vals[(i*len(t.ages)+j)*len(t.fehs)+k]
}

// Magnitude interpolates one band trilinearly at (mass, age, feh).
func (t *Track) Magnitude(band string, mass, age, feh float64) (float64, error) {
	vals, ok := t.bands[band]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBand, band)
	}

	i, fm, ok := locate(t.masses, mass)
	if !ok {
		return 0, &OutOfRangeError{Mass: mass, Age: age, FeH: feh}
	}
	j, fa, ok := locate(t.ages, age)
	if !ok {
		return 0, &OutOfRangeError{Mass: mass, Age: age, FeH: feh}
	}
	k, ff, ok := locate(t.fehs, feh)
	if !ok {
		return 0, &OutOfRangeError{Mass: mass, Age: age, FeH: feh}
	}

	// Collapse one axis at a time; single-sample axes use the only
	// available plane.
	i1, j1, k1 := i+1, j+1, k+1
	if len(t.masses) == 1 {
		i1 = i
	}
	if len(t.ages) == 1 {
		j1 = j
	}
	if len(t.fehs) == 1 {
		k1 = k
	}

	c00 := lerp(t.at(vals, i, j, k), t.at(vals, i1, j, k), fm)
	c01 := lerp(t.at(vals, i, j, k1), t.at(vals, i1, j, k1), fm)
	c10 := lerp(t.at(vals, i, j1, k), t.at(vals, i1, j1, k), fm)
	c11 := lerp(t.at(vals, i, j1, k1), t.at(vals, i1, j1, k1), fm)

	c0 := lerp(c00, c10, fa)
	c1 := lerp(c01, c11, fa)
	return lerp(c0, c1, ff), nil
}

// Magnitudes interpolates every requested band at (mass, age, feh).
func (t *Track) Magnitudes(mass, age, feh float64, bands []string) (map[string]float64, error) {
	out := make(map[string]float64, len(bands))
	for _, band := range bands {
		mag, err := t.Magnitude(band, mass, age, feh)
		if err != nil {
			return nil, err
		}
		out[band] = mag
	}
	return out, nil
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}
