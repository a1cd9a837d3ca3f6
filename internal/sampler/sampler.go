// Package sampler converts one star particle plus its phase-space
// density into a set of individually resolved synthetic stars. Masses
// come from inverse-CDF draws of an IMF until the particle's stellar
// mass is spent; positions and velocities are spread around the parent
// with a kernel whose bandwidth shrinks as local density grows.
// Sampling is fully deterministic for a given seed.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/imf"
	"github.com/san-kum/galsynth/internal/phasespace"
)

// ErrBadDensity indicates a non-positive or non-finite density handed
// to Sample. Densities are validated upstream; hitting this is a
// precondition violation, not a sampling failure.
var ErrBadDensity = errors.New("sampler: non-positive or non-finite density")

// ErrBadMass indicates a particle with non-positive stellar mass.
var ErrBadMass = errors.New("sampler: non-positive particle mass")

// Density carries the per-particle density estimates feeding one
// Sample call. Pos and Vel are the subspace densities driving the
// placement bandwidths; a zero marks a collapsed subspace in which
// stars inherit the parent coordinate exactly. Phase is the combined
// phase-space density and must be strictly positive and finite.
type Density struct {
	Pos   float64
	Vel   float64
	Phase float64
}

// Params configure star placement. Zero values select the defaults
// (gaussian kernel, unit scales).
type Params struct {
	Kernel PlacementKernel

	// PosScale and VelScale multiply the position- and
	// velocity-space bandwidths h = scale / rho^(1/3).
	PosScale float64
	VelScale float64
}

// Sampler draws synthetic stars for particles. Stateless between
// calls; safe for concurrent use since all randomness lives in
// per-call rngs.
type Sampler struct {
	imf *imf.IMF
	p   Params
}

// New validates parameters and returns a sampler.
func New(f *imf.IMF, p Params) (*Sampler, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil IMF", imf.ErrConfig)
	}
	if p.Kernel == nil {
		p.Kernel = GaussianPlacement()
	}
	if p.PosScale == 0 {
		p.PosScale = 1
	}
	if p.VelScale == 0 {
		p.VelScale = 1
	}
	if p.PosScale < 0 || p.VelScale < 0 {
		return nil, fmt.Errorf("%w: negative placement scale", imf.ErrConfig)
	}
	return &Sampler{imf: f, p: p}, nil
}

// Sample produces the star set of one particle. Star IDs are local
// (0..n-1); the orchestrator renumbers globally after assembly. Age,
// metallicity, abundances and dust column are copied verbatim onto
// every star. Magnitudes are left nil for the photometry stage.
//
// A particle whose mass is below the IMF minimum yields zero stars.
// Identical (particle, density, params, seed) inputs yield identical
// star sets.
func (s *Sampler) Sample(id int, p phasespace.Particle, d Density, seed int64) ([]catalog.Star, error) {
	if p.Mass <= 0 || math.IsNaN(p.Mass) || math.IsInf(p.Mass, 0) {
		return nil, fmt.Errorf("%w: particle %d mass %g", ErrBadMass, id, p.Mass)
	}
	if err := checkDensity(id, d); err != nil {
		return nil, err
	}
	if p.Mass < s.imf.MinMass() {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(seed))
	masses := s.drawMasses(rng, p.Mass)

	hPos := bandwidth(s.p.PosScale, d.Pos)
	hVel := bandwidth(s.p.VelScale, d.Vel)

	stars := make([]catalog.Star, len(masses))
	abundances := append([]float64(nil), p.Abundances...)
	for i, m := range masses {
		stars[i] = catalog.Star{
			ID:         i,
			ParentID:   id,
			Pos:        p.Pos.Add(s.offset(rng, hPos)),
			Vel:        p.Vel.Add(s.offset(rng, hVel)),
			Mass:       m,
			Age:        p.Age,
			FeH:        p.FeH,
			Abundances: abundances,
			Log10NH:    p.Log10NH,
		}
	}
	return stars, nil
}

// drawMasses accumulates IMF draws until the particle mass is reached.
// The final draw is accepted iff keeping it leaves the total closer to
// the target than dropping it, which bounds the mass error by one
// draw and fixes the star count deterministically.
func (s *Sampler) drawMasses(rng *rand.Rand, target float64) []float64 {
	var masses []float64
	sum := 0.0
	for sum < target {
		m := s.imf.Draw(rng)
		masses = append(masses, m)
		sum += m
	}

	last := masses[len(masses)-1]
	overshoot := sum - target
	undershoot := target - (sum - last)
	if overshoot > undershoot {
		masses = masses[:len(masses)-1]
	}
	return masses
}

func (s *Sampler) offset(rng *rand.Rand, h float64) phasespace.Vec3 {
	if h == 0 {
		return phasespace.Vec3{}
	}
	return phasespace.Vec3{
		h * s.p.Kernel.Deviate(rng),
		h * s.p.Kernel.Deviate(rng),
		h * s.p.Kernel.Deviate(rng),
	}
}

// bandwidth scales inversely with the cube root of the subspace
// density: sparse regions spread their stars further, approximating a
// smooth field from discrete particles. A collapsed subspace (rho=0)
// gets zero bandwidth.
func bandwidth(scale, rho float64) float64 {
	if rho == 0 {
		return 0
	}
	return scale / math.Cbrt(rho)
}

func checkDensity(id int, d Density) error {
	if d.Phase <= 0 || math.IsNaN(d.Phase) || math.IsInf(d.Phase, 0) {
		return fmt.Errorf("%w: particle %d phase density %g", ErrBadDensity, id, d.Phase)
	}
	for _, rho := range []float64{d.Pos, d.Vel} {
		if rho < 0 || math.IsNaN(rho) || math.IsInf(rho, 0) {
			return fmt.Errorf("%w: particle %d subspace density %g", ErrBadDensity, id, rho)
		}
	}
	return nil
}
