// Package photometry maps band-system identifiers to their
// capabilities: the band set, extinction-coefficient estimator, and
// magnitude error model. Lookup of an unconfigured system is an
// explicit error, never a silent fallback.
package photometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/galsynth/internal/isochrone"
)

// ErrUnconfigured indicates a band system with no registered
// capabilities.
var ErrUnconfigured = errors.New("photometry: band system not configured")

// System describes one photometric system's capabilities.
type System struct {
	Name  string
	Bands []string

	// ColorBands are the two bands whose intrinsic difference feeds
	// the extinction-coefficient polynomial.
	ColorBands [2]string

	// RefBand is the band whose magnitude feeds the error model.
	RefBand string

	// ExtinctionCoeff returns the per-band ratio A_band/A_0 given the
	// star's intrinsic color and the monochromatic extinction A_0.
	ExtinctionCoeff func(color, a0 float64) map[string]float64

	// MagErr returns the per-band 1-sigma magnitude uncertainty given
	// the star's reference-band magnitude. NaN marks magnitudes
	// outside the model's validity range.
	MagErr func(refMag float64) map[string]float64
}

var registry = map[string]System{
	"GAIA": gaiaDR2(),
}

// Lookup resolves a band-system identifier.
func Lookup(name string) (System, error) {
	sys, ok := registry[name]
	if !ok {
		return System{}, fmt.Errorf("%w: %s", ErrUnconfigured, name)
	}
	return sys, nil
}

// Systems lists the configured band-system identifiers.
func Systems() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// gaiaDR2 builds the GAIA DR2 system. Extinction coefficients follow
// the empirical polynomial of Babusiaux et al. 2018 (Table 1, their
// Eq. 1) in intrinsic BP-RP and A_0; magnitude uncertainties follow
// the DR2 release paper's Table 3 fits sigma = c0 + c1*exp(m/c2),
// valid for 3 < G < 21.
func gaiaDR2() System {
	coeffs := map[string][7]float64{
		isochrone.BandG:  {0.9761, -0.1704, 0.0086, 0.0011, -0.0438, 0.0013, 0.0099},
		isochrone.BandBP: {1.1517, -0.0871, -0.0333, 0.0173, -0.0230, 0.0006, 0.0043},
		isochrone.BandRP: {0.6104, -0.0170, -0.0026, -0.0017, -0.0078, 0.00005, 0.0006},
	}
	errCoeffs := map[string][3]float64{
		isochrone.BandG:  {0.000214143, 1.07523e-7, 1.75147},
		isochrone.BandBP: {0.00162729, 2.52848e-8, 1.25981},
		isochrone.BandRP: {0.00162729, 2.52848e-8, 1.25981},
	}

	return System{
		Name:       "GAIA",
		Bands:      isochrone.GAIABands(),
		ColorBands: [2]string{isochrone.BandBP, isochrone.BandRP},
		RefBand:    isochrone.BandG,
		ExtinctionCoeff: func(color, a0 float64) map[string]float64 {
			out := make(map[string]float64, len(coeffs))
			for band, c := range coeffs {
				out[band] = c[0] + c[1]*color + c[2]*color*color +
					c[3]*color*color*color + c[4]*a0 + c[5]*a0*a0 + c[6]*color*a0
			}
			return out
		},
		MagErr: func(g float64) map[string]float64 {
			out := make(map[string]float64, len(errCoeffs))
			for band, c := range errCoeffs {
				if g <= 3 || g >= 21 {
					out[band] = math.NaN()
					continue
				}
				out[band] = c[0] + c[1]*math.Exp(g/c[2])
			}
			return out
		},
	}
}
