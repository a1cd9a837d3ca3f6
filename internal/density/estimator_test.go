package density

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/galsynth/internal/kdtree"
	"github.com/san-kum/galsynth/internal/phasespace"
)

func uniformCube(n int, side float64, seed int64) []phasespace.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]phasespace.Vec3, n)
	for i := range pts {
		pts[i] = phasespace.Vec3{
			rng.Float64() * side,
			rng.Float64() * side,
			rng.Float64() * side,
		}
	}
	return pts
}

func estimate(t *testing.T, pts []phasespace.Vec3, p Params) []float64 {
	t.Helper()
	tree, err := kdtree.Build(pts)
	require.NoError(t, err)
	est, err := NewEstimator(p)
	require.NoError(t, err)
	rho, err := est.Estimate(tree)
	require.NoError(t, err)
	return rho
}

func TestEstimatePositiveFinite(t *testing.T) {
	for _, kernel := range []Kernel{Gaussian(), Triangular(), Epanechnikov()} {
		pts := uniformCube(200, 10, 1)
		rho := estimate(t, pts, Params{Neighbors: 16, Kernel: kernel})
		require.Len(t, rho, len(pts))
		for i, r := range rho {
			assert.Greater(t, r, 0.0, "point %d kernel %s", i, kernel.Name())
			assert.False(t, math.IsInf(r, 0) || math.IsNaN(r))
		}
	}
}

func TestClusteringIncreasesDensity(t *testing.T) {
	// A tight clump embedded in a sparse background must come out
	// denser than the background.
	rng := rand.New(rand.NewSource(2))
	var pts []phasespace.Vec3
	for i := 0; i < 50; i++ {
		pts = append(pts, phasespace.Vec3{
			rng.Float64() * 100, rng.Float64() * 100, rng.Float64() * 100,
		})
	}
	clumpStart := len(pts)
	for i := 0; i < 50; i++ {
		pts = append(pts, phasespace.Vec3{
			50 + rng.Float64(), 50 + rng.Float64(), 50 + rng.Float64(),
		})
	}

	rho := estimate(t, pts, Params{Neighbors: 8})

	background, clump := 0.0, 0.0
	for i, r := range rho {
		if i < clumpStart {
			background += r
		} else {
			clump += r
		}
	}
	assert.Greater(t, clump/50, background/50,
		"clump must be denser than background")
}

func TestFewerNeighborsThanRequested(t *testing.T) {
	pts := uniformCube(5, 1, 3)
	rho := estimate(t, pts, Params{Neighbors: 64})
	for _, r := range rho {
		assert.Greater(t, r, 0.0)
	}
}

func TestDuplicatePointsAreEstimationError(t *testing.T) {
	pts := []phasespace.Vec3{{1, 1, 1}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}}
	tree, err := kdtree.Build(pts)
	require.NoError(t, err)
	est, err := NewEstimator(Params{Neighbors: 2})
	require.NoError(t, err)

	_, err = est.Estimate(tree)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadDensity)

	var ee *EstimationError
	require.ErrorAs(t, err, &ee)
}

func TestBandwidthPolicies(t *testing.T) {
	pts := uniformCube(100, 10, 4)
	for _, policy := range []BandwidthPolicy{BandwidthFarthest, BandwidthLeafSize} {
		rho := estimate(t, pts, Params{Neighbors: 8, Bandwidth: policy})
		for _, r := range rho {
			assert.Greater(t, r, 0.0, "policy %s", policy)
		}
	}
}

func TestInvalidParams(t *testing.T) {
	_, err := NewEstimator(Params{Neighbors: -1})
	assert.Error(t, err)
	_, err = NewEstimator(Params{Bandwidth: "nope"})
	assert.Error(t, err)
	_, err = KernelByName("box")
	assert.Error(t, err)
	_, err = CombinerByName("sum")
	assert.Error(t, err)
}

func TestCombineFields(t *testing.T) {
	pos := []float64{1, 4}
	vel := []float64{4, 1}

	f := CombineFields(GeometricMean(), pos, vel)
	assert.InDelta(t, 2.0, f.Phase[0], 1e-12)
	assert.InDelta(t, 2.0, f.Phase[1], 1e-12)

	f = CombineFields(Product(), pos, vel)
	assert.InDelta(t, 4.0, f.Phase[0], 1e-12)

	// Collapsed velocity subspace falls back to position density.
	f = CombineFields(GeometricMean(), pos, nil)
	assert.Equal(t, pos, f.Phase)
}

func TestRankWindow(t *testing.T) {
	tests := []struct {
		r, k, n        int
		wantLo, wantHi int
	}{
		{r: 5, k: 4, n: 20, wantLo: 3, wantHi: 7},
		{r: 0, k: 4, n: 20, wantLo: 0, wantHi: 4},
		{r: 19, k: 4, n: 20, wantLo: 15, wantHi: 19},
		{r: 0, k: 10, n: 5, wantLo: 0, wantHi: 4},
		{r: 0, k: 0, n: 1, wantLo: 0, wantHi: 0},
	}
	for _, tt := range tests {
		lo, hi := rankWindow(tt.r, tt.k, tt.n)
		assert.Equal(t, tt.wantLo, lo, "r=%d k=%d n=%d", tt.r, tt.k, tt.n)
		assert.Equal(t, tt.wantHi, hi, "r=%d k=%d n=%d", tt.r, tt.k, tt.n)
	}
}
