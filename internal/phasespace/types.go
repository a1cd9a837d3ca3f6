package phasespace

import "math"

// Vec3 is a point or offset in a 3-dimensional subspace (position in
// kpc or velocity in km/s).
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v Vec3) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Particle is one simulation mass element representing an unresolved
// stellar population. Immutable input, owned by the caller for the
// lifetime of one pipeline run.
type Particle struct {
	Pos  Vec3    // kpc
	Vel  Vec3    // km/s
	Mass float64 // stellar mass represented, solar masses, > 0
	Age  float64 // log10 age in yr
	FeH  float64 // [Fe/H] in dex relative to solar

	// Abundances holds optional extra abundance ratios, copied
	// verbatim onto every synthetic star the particle produces.
	Abundances []float64

	// Log10NH is the optional log10 neutral-hydrogen column density
	// between observer and particle, used by the extinction
	// post-processor. NaN when not supplied.
	Log10NH float64
}

// Point is one 6-dimensional phase-space sample with a back-reference
// to its owning particle. Points exist only while trees are built and
// densities estimated, and are discarded afterwards.
type Point struct {
	Coords     [6]float64
	ParticleID int
}

// PointOf projects a particle into phase space.
func PointOf(id int, p Particle) Point {
	return Point{
		Coords: [6]float64{
			p.Pos[0], p.Pos[1], p.Pos[2],
			p.Vel[0], p.Vel[1], p.Vel[2],
		},
		ParticleID: id,
	}
}

// Position returns the position 3-subspace projection of the point.
func (p Point) Position() Vec3 {
	return Vec3{p.Coords[0], p.Coords[1], p.Coords[2]}
}

// Velocity returns the velocity 3-subspace projection of the point.
func (p Point) Velocity() Vec3 {
	return Vec3{p.Coords[3], p.Coords[4], p.Coords[5]}
}

// Positions extracts the position subspace of a particle set.
func Positions(particles []Particle) []Vec3 {
	out := make([]Vec3, len(particles))
	for i, p := range particles {
		out[i] = p.Pos
	}
	return out
}

// Velocities extracts the velocity subspace of a particle set.
func Velocities(particles []Particle) []Vec3 {
	out := make([]Vec3, len(particles))
	for i, p := range particles {
		out[i] = p.Vel
	}
	return out
}
