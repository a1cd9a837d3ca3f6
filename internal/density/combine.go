package density

import "math"

// Combiner merges a position-space and a velocity-space density into
// one 6D phase-space density. The split-then-combine scheme stands in
// for a true 6D estimator, so the rule lives behind this interface and
// is selected by configuration rather than hardcoded.
type Combiner interface {
	Name() string
	Combine(pos, vel float64) float64
}

type geometricMean struct{}

func (geometricMean) Name() string { return "geometric-mean" }
func (geometricMean) Combine(pos, vel float64) float64 {
	return math.Sqrt(pos * vel)
}

type product struct{}

func (product) Name() string { return "product" }
func (product) Combine(pos, vel float64) float64 {
	return pos * vel
}

// GeometricMean returns the default combination rule. The geometric
// mean keeps the combined value on a scale comparable to either input,
// which keeps placement bandwidths stable when the two subspaces have
// very different units.
func GeometricMean() Combiner { return geometricMean{} }

// Product returns the plain product rule, the literal 6D density under
// separability.
func Product() Combiner { return product{} }

// CombinerByName resolves a configuration tag to a combination rule.
func CombinerByName(name string) (Combiner, error) {
	switch name {
	case "", "geometric-mean":
		return GeometricMean(), nil
	case "product":
		return Product(), nil
	default:
		return nil, &ConfigError{Field: "combine", Value: name}
	}
}

// Field holds the per-particle densities of one pipeline run. A nil
// subspace slice marks a collapsed subspace (zero bounding volume,
// e.g. zero velocity dispersion) that carries no density information;
// Phase then equals the surviving subspace's density.
type Field struct {
	Pos   []float64
	Vel   []float64
	Phase []float64
}

// CombineFields merges subspace densities into phase-space densities.
// Exactly one subspace may be nil.
func CombineFields(c Combiner, pos, vel []float64) *Field {
	f := &Field{Pos: pos, Vel: vel}
	switch {
	case vel == nil:
		f.Phase = pos
	case pos == nil:
		f.Phase = vel
	default:
		f.Phase = make([]float64, len(pos))
		for i := range pos {
			f.Phase[i] = c.Combine(pos[i], vel[i])
		}
	}
	return f
}
