package kdtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/galsynth/internal/phasespace"
)

func randomPoints(n int, seed int64) []phasespace.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]phasespace.Vec3, n)
	for i := range pts {
		pts[i] = phasespace.Vec3{rng.Float64(), rng.Float64(), rng.Float64()}
	}
	return pts
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestBuildSinglePoint(t *testing.T) {
	tree, err := Build([]phasespace.Vec3{{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, 1, tree.Len())

	leaves := tree.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, 0.0, leaves[0].Box.Volume(), "degenerate one-leaf tree has zero volume")
}

func TestOnePointPerLeaf(t *testing.T) {
	for _, n := range []int{2, 3, 7, 64, 501} {
		pts := randomPoints(n, int64(n))
		tree, err := Build(pts)
		require.NoError(t, err)

		leaves := tree.Leaves()
		require.Len(t, leaves, n)

		seen := make(map[int]bool, n)
		for _, lf := range leaves {
			assert.False(t, seen[lf.Point], "point %d appears in two leaves", lf.Point)
			seen[lf.Point] = true
			assert.True(t, lf.Box.Contains(pts[lf.Point]),
				"point %d outside its leaf box", lf.Point)
		}
	}
}

func TestLeafVolumesPartitionRoot(t *testing.T) {
	pts := randomPoints(256, 42)
	tree, err := Build(pts)
	require.NoError(t, err)

	total := 0.0
	for _, lf := range tree.Leaves() {
		vol := lf.Box.Volume()
		assert.GreaterOrEqual(t, vol, 0.0)
		total += vol
	}

	root := tree.Bounds().Volume()
	assert.InEpsilon(t, root, total, 1e-9,
		"leaf volumes must sum to the root bounding volume")
}

func TestDuplicateCoordinates(t *testing.T) {
	pts := []phasespace.Vec3{
		{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {2, 2, 2},
	}
	tree, err := Build(pts)
	require.NoError(t, err)
	require.Len(t, tree.Leaves(), len(pts), "duplicates still get one leaf each")
}

func TestDeterministicStructure(t *testing.T) {
	pts := randomPoints(128, 7)
	a, err := Build(pts)
	require.NoError(t, err)
	b, err := Build(pts)
	require.NoError(t, err)

	la, lb := a.Leaves(), b.Leaves()
	require.Equal(t, len(la), len(lb))
	for i := range la {
		assert.Equal(t, la[i].Point, lb[i].Point)
		assert.Equal(t, la[i].Box, lb[i].Box)
	}
}

func TestLeafRankRoundTrip(t *testing.T) {
	pts := randomPoints(64, 3)
	tree, err := Build(pts)
	require.NoError(t, err)

	for _, lf := range tree.Leaves() {
		assert.Equal(t, lf.Rank, tree.LeafRank(lf.Point))
	}
}

func TestWidestAxisSplitsFirst(t *testing.T) {
	// Spread is much larger along y, so the root split must be on axis 1.
	pts := []phasespace.Vec3{
		{0, -10, 0}, {0.1, 10, 0.1}, {0.2, 0, 0.2}, {0.05, 5, 0.15},
	}
	tree, err := Build(pts)
	require.NoError(t, err)

	// The left half of the in-order leaves must sit entirely below the
	// right half in y.
	leaves := tree.Leaves()
	maxLeft, minRight := math.Inf(-1), math.Inf(1)
	for _, lf := range leaves[:2] {
		if v := pts[lf.Point][1]; v > maxLeft {
			maxLeft = v
		}
	}
	for _, lf := range leaves[2:] {
		if v := pts[lf.Point][1]; v < minRight {
			minRight = v
		}
	}
	assert.LessOrEqual(t, maxLeft, minRight)
}
