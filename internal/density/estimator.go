// Package density estimates per-point local densities from a built
// space-partitioning tree by kernel smoothing over leaf volumes. The
// estimator runs independently on the position and velocity subspaces
// of a particle set; a Combiner merges the two scalars into one
// phase-space density per particle.
package density

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/galsynth/internal/kdtree"
)

// DefaultNeighbors is the number of adjacent leaves smoothed over,
// matching the upstream pipeline's historical default.
const DefaultNeighbors = 64

// ErrBadDensity indicates a non-positive or non-finite density
// estimate. This is an estimator failure, never silently clamped; the
// whole run aborts so results stay reproducible.
var ErrBadDensity = errors.New("density: non-positive or non-finite estimate")

// EstimationError reports which point produced an unusable density.
type EstimationError struct {
	Point int
	Value float64
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("density: point %d has unusable density %g", e.Point, e.Value)
}

func (e *EstimationError) Unwrap() error { return ErrBadDensity }

// ConfigError reports an invalid estimator parameter.
type ConfigError struct {
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("density: invalid %s %v", e.Field, e.Value)
}

// BandwidthPolicy selects how the adaptive smoothing radius is derived
// from the local leaf geometry.
type BandwidthPolicy string

const (
	// BandwidthFarthest sets the radius to the distance of the
	// farthest selected neighbor, so each neighborhood exactly spans
	// its kernel support. Default.
	BandwidthFarthest BandwidthPolicy = "farthest"

	// BandwidthLeafSize scales the radius from the point's own leaf
	// diagonal, growing with the neighbor count as k^(1/3).
	BandwidthLeafSize BandwidthPolicy = "leafsize"
)

// Params configure the estimator. Zero values select the documented
// defaults (64 neighbors, gaussian kernel, farthest-neighbor
// bandwidth).
type Params struct {
	Neighbors int
	Kernel    Kernel
	Bandwidth BandwidthPolicy
}

// Estimator computes smoothed leaf densities over a tree. Stateless
// between calls; safe to reuse across subspaces.
type Estimator struct {
	p Params
}

// NewEstimator validates parameters and returns an estimator.
func NewEstimator(p Params) (*Estimator, error) {
	if p.Neighbors == 0 {
		p.Neighbors = DefaultNeighbors
	}
	if p.Neighbors < 0 {
		return nil, &ConfigError{Field: "neighbors", Value: p.Neighbors}
	}
	if p.Kernel == nil {
		p.Kernel = Gaussian()
	}
	switch p.Bandwidth {
	case "":
		p.Bandwidth = BandwidthFarthest
	case BandwidthFarthest, BandwidthLeafSize:
	default:
		return nil, &ConfigError{Field: "bandwidth", Value: string(p.Bandwidth)}
	}
	return &Estimator{p: p}, nil
}

// Estimate returns one density per point index of the tree. The base
// density of a leaf is 1/volume; the final value is the kernel-weighted
// mean of the leaf's own base density with its nearest neighbors in
// leaf rank order (tree adjacency, no new spatial query). Small inputs
// smooth over every available leaf. An isolated single point keeps its
// base density untouched.
func (e *Estimator) Estimate(tree *kdtree.Tree) ([]float64, error) {
	leaves := tree.Leaves()
	n := len(leaves)

	base := make([]float64, n) // indexed by leaf rank
	for r, lf := range leaves {
		vol := lf.Box.Volume()
		if vol <= 0 || math.IsInf(vol, 0) || math.IsNaN(vol) {
			return nil, &EstimationError{Point: lf.Point, Value: vol}
		}
		base[r] = 1 / vol
	}

	k := e.p.Neighbors
	if k > n-1 {
		k = n - 1
	}

	out := make([]float64, n) // indexed by point
	dists := make([]float64, 0, k+1)
	weights := make([]float64, 0, k+1)
	values := make([]float64, 0, k+1)

	for r, lf := range leaves {
		lo, hi := rankWindow(r, k, n)
		self := tree.PointAt(lf.Point)

		dists = dists[:0]
		values = values[:0]
		for j := lo; j <= hi; j++ {
			dists = append(dists, self.Sub(tree.PointAt(leaves[j].Point)).Norm())
			values = append(values, base[j])
		}

		h := e.bandwidth(lf, dists)
		weights = weights[:0]
		for _, d := range dists {
			u := 0.0
			if h > 0 {
				u = d / h
			}
			weights = append(weights, e.p.Kernel.Weight(u))
		}

		wsum := floats.Sum(weights)
		rho := base[r]
		if wsum > 0 {
			rho = floats.Dot(weights, values) / wsum
		}
		if rho <= 0 || math.IsInf(rho, 0) || math.IsNaN(rho) {
			return nil, &EstimationError{Point: lf.Point, Value: rho}
		}
		out[lf.Point] = rho
	}

	return out, nil
}

// rankWindow returns the inclusive rank range holding r plus its k
// nearest ranks, clipped at the ends of the leaf sequence.
func rankWindow(r, k, n int) (lo, hi int) {
	lo = r - k/2
	hi = lo + k
	if lo < 0 {
		hi -= lo
		lo = 0
	}
	if hi > n-1 {
		lo -= hi - (n - 1)
		hi = n - 1
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

func (e *Estimator) bandwidth(lf kdtree.Leaf, dists []float64) float64 {
	switch e.p.Bandwidth {
	case BandwidthLeafSize:
		diag := lf.Box.Max.Sub(lf.Box.Min).Norm()
		return diag * math.Cbrt(float64(len(dists)))
	default:
		return floats.Max(dists)
	}
}
