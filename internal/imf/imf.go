// Package imf implements broken-power-law initial mass functions with
// exact inverse-CDF sampling. An IMF is immutable once constructed and
// safe for concurrent use; sampling state lives in the caller's rng.
package imf

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrConfig indicates an invalid IMF specification. Raised at
// construction time, never per-particle.
var ErrConfig = errors.New("imf: invalid configuration")

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// IMF is a broken power law dN/dm ∝ m^-slope over consecutive mass
// segments. Breaks are the segment boundaries in solar masses,
// ascending; Breaks[0] and Breaks[len-1] are the minimum and maximum
// sampled masses.
type IMF struct {
	breaks []float64
	slopes []float64

	// Per-segment sampling tables.
	cum  []float64 // cumulative probability at each break, cum[0]=0, cum[last]=1
	amp  []float64 // continuity amplitudes
	mean float64
}

// New builds an IMF from break masses and per-segment slopes.
// len(slopes) must equal len(breaks)-1, breaks must be strictly
// ascending and positive.
func New(breaks, slopes []float64) (*IMF, error) {
	if len(breaks) < 2 {
		return nil, configErr("need at least 2 break masses, got %d", len(breaks))
	}
	if len(slopes) != len(breaks)-1 {
		return nil, configErr("%d slopes for %d segments", len(slopes), len(breaks)-1)
	}
	if breaks[0] <= 0 {
		return nil, configErr("minimum mass %g must be positive", breaks[0])
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] <= breaks[i-1] {
			return nil, configErr("break masses must ascend: %g >= %g",
				breaks[i-1], breaks[i])
		}
	}

	f := &IMF{
		breaks: append([]float64(nil), breaks...),
		slopes: append([]float64(nil), slopes...),
	}
	f.tabulate()
	return f, nil
}

// Kroupa returns the Kroupa (2001) broken power law over [min, max]:
// dN/dm ∝ m^-0.3 below 0.08 Msun, m^-1.3 between 0.08 and 0.5, and
// m^-2.3 above. Knees outside the mass range drop out, so a range
// above 0.5 degrades to a single segment.
func Kroupa(minMass, maxMass float64) (*IMF, error) {
	if minMass >= maxMass {
		return nil, configErr("min mass %g >= max mass %g", minMass, maxMass)
	}

	breaks := []float64{minMass}
	for _, knee := range []float64{0.08, 0.5} {
		if minMass < knee && knee < maxMass {
			breaks = append(breaks, knee)
		}
	}
	breaks = append(breaks, maxMass)

	slopes := make([]float64, len(breaks)-1)
	for i := range slopes {
		slopes[i] = kroupaSlope(breaks[i])
	}
	return New(breaks, slopes)
}

// kroupaSlope returns the power-law slope of the segment starting at m.
func kroupaSlope(m float64) float64 {
	switch {
	case m < 0.08:
		return 0.3
	case m < 0.5:
		return 1.3
	default:
		return 2.3
	}
}

func (f *IMF) tabulate() {
	n := len(f.slopes)
	f.amp = make([]float64, n)
	f.amp[0] = 1
	for i := 1; i < n; i++ {
		// Continuity at the break: a_i m^-s_i = a_{i-1} m^-s_{i-1}.
		m := f.breaks[i]
		f.amp[i] = f.amp[i-1] * math.Pow(m, f.slopes[i]-f.slopes[i-1])
	}

	seg := make([]float64, n)   // unnormalized probability per segment
	segM := make([]float64, n)  // unnormalized mass per segment
	for i := 0; i < n; i++ {
		seg[i] = f.amp[i] * powerIntegral(f.breaks[i], f.breaks[i+1], -f.slopes[i])
		segM[i] = f.amp[i] * powerIntegral(f.breaks[i], f.breaks[i+1], 1-f.slopes[i])
	}

	total, totalM := 0.0, 0.0
	for i := 0; i < n; i++ {
		total += seg[i]
		totalM += segM[i]
	}

	f.cum = make([]float64, n+1)
	for i := 0; i < n; i++ {
		f.cum[i+1] = f.cum[i] + seg[i]/total
	}
	f.cum[n] = 1
	f.mean = totalM / total
}

// powerIntegral computes the integral of m^p over [a, b].
func powerIntegral(a, b, p float64) float64 {
	if p == -1 {
		return math.Log(b / a)
	}
	return (math.Pow(b, p+1) - math.Pow(a, p+1)) / (p + 1)
}

// MinMass returns the minimum resolvable stellar mass.
func (f *IMF) MinMass() float64 { return f.breaks[0] }

// MaxMass returns the maximum sampled stellar mass.
func (f *IMF) MaxMass() float64 { return f.breaks[len(f.breaks)-1] }

// MeanMass returns the expectation of one draw, used to predict star
// counts per unit stellar mass.
func (f *IMF) MeanMass() float64 { return f.mean }

// Draw samples one stellar mass by inverse-CDF transform of a single
// uniform deviate from rng.
func (f *IMF) Draw(rng *rand.Rand) float64 {
	u := rng.Float64()

	seg := len(f.slopes) - 1
	for i := 1; i <= len(f.slopes); i++ {
		if u < f.cum[i] {
			seg = i - 1
			break
		}
	}

	// Rescale u onto the segment and invert the truncated power law.
	lo, hi := f.breaks[seg], f.breaks[seg+1]
	t := (u - f.cum[seg]) / (f.cum[seg+1] - f.cum[seg])
	p := 1 - f.slopes[seg]
	if p == 0 {
		return lo * math.Pow(hi/lo, t)
	}
	return math.Pow(math.Pow(lo, p)+t*(math.Pow(hi, p)-math.Pow(lo, p)), 1/p)
}
