// Package kdtree implements the binary space-partitioning tree used by
// the phase-space density estimator. The tree recursively splits a
// point set at the median of the dimension with the greatest spread
// until every leaf holds exactly one point; leaf bounding boxes
// partition the root bounding box exactly.
package kdtree

import (
	"errors"
	"sort"
	"sync"

	"github.com/san-kum/galsynth/internal/phasespace"
)

// ErrNoPoints indicates Build was called with an empty point set.
var ErrNoPoints = errors.New("kdtree: no points given")

// Subtrees at or above this size build their children concurrently.
const parallelBuildMin = 4096

// Box is an axis-aligned bounding box in a 3-dimensional subspace.
type Box struct {
	Min, Max phasespace.Vec3
}

// Volume returns the product of the box extents. A box collapsed to
// zero width in any dimension has zero volume; callers treat that as
// a degenerate input.
func (b Box) Volume() float64 {
	v := 1.0
	for d := 0; d < 3; d++ {
		v *= b.Max[d] - b.Min[d]
	}
	return v
}

// Contains reports whether p lies inside the box (boundaries
// inclusive).
func (b Box) Contains(p phasespace.Vec3) bool {
	for d := 0; d < 3; d++ {
		if p[d] < b.Min[d] || p[d] > b.Max[d] {
			return false
		}
	}
	return true
}

type node struct {
	axis  int
	split float64
	size  int
	box   Box

	left, right *node

	// point is the index of the contained point for leaves, -1 for
	// internal nodes.
	point int
}

func (n *node) leaf() bool { return n.point >= 0 }

// Leaf describes one leaf of a built tree: the single point it
// contains, the sub-volume induced by the ancestor splits, and the
// leaf's rank in the in-order traversal. Rank distance is the tree
// adjacency used for neighbor selection during density smoothing.
type Leaf struct {
	Point int
	Box   Box
	Rank  int
}

// Tree is a built space-partitioning tree. Purely structural: nothing
// beyond split values, subtree sizes and leaf volumes is cached.
type Tree struct {
	root   *node
	points []phasespace.Vec3
	leaves []Leaf
	rankOf []int // point index -> leaf rank
}

// Build constructs a tree over the given points. Splits are taken at
// the median point of the dimension with the greatest spread;
// duplicate coordinates are ordered by insertion index so the
// structure is deterministic. A single point yields a one-leaf tree
// whose volume is zero; callers must guard before inverting it.
func Build(points []phasespace.Vec3) (*Tree, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}

	t := &Tree{
		points: points,
		rankOf: make([]int, len(points)),
	}
	t.root = build(points, idx, bounds(points))
	t.collectLeaves(t.root)
	return t, nil
}

func bounds(points []phasespace.Vec3) Box {
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		for d := 0; d < 3; d++ {
			if p[d] < b.Min[d] {
				b.Min[d] = p[d]
			}
			if p[d] > b.Max[d] {
				b.Max[d] = p[d]
			}
		}
	}
	return b
}

func build(points []phasespace.Vec3, idx []int, box Box) *node {
	if len(idx) == 1 {
		return &node{point: idx[0], size: 1, box: box}
	}

	axis := widestAxis(points, idx)
	sort.Slice(idx, func(a, b int) bool {
		pa, pb := points[idx[a]][axis], points[idx[b]][axis]
		if pa != pb {
			return pa < pb
		}
		return idx[a] < idx[b]
	})

	mid := len(idx) / 2
	split := points[idx[mid]][axis]

	leftBox, rightBox := box, box
	leftBox.Max[axis] = split
	rightBox.Min[axis] = split

	n := &node{axis: axis, split: split, size: len(idx), point: -1, box: box}
	if len(idx) >= parallelBuildMin {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.left = build(points, idx[:mid], leftBox)
		}()
		n.right = build(points, idx[mid:], rightBox)
		wg.Wait()
	} else {
		n.left = build(points, idx[:mid], leftBox)
		n.right = build(points, idx[mid:], rightBox)
	}
	return n
}

func widestAxis(points []phasespace.Vec3, idx []int) int {
	axis := 0
	widest := -1.0
	for d := 0; d < 3; d++ {
		lo, hi := points[idx[0]][d], points[idx[0]][d]
		for _, i := range idx[1:] {
			c := points[i][d]
			if c < lo {
				lo = c
			}
			if c > hi {
				hi = c
			}
		}
		if hi-lo > widest {
			widest = hi - lo
			axis = d
		}
	}
	return axis
}

func (t *Tree) collectLeaves(n *node) {
	if n.leaf() {
		rank := len(t.leaves)
		t.leaves = append(t.leaves, Leaf{Point: n.point, Box: n.box, Rank: rank})
		t.rankOf[n.point] = rank
		return
	}
	t.collectLeaves(n.left)
	t.collectLeaves(n.right)
}

// Len returns the number of points (and leaves) in the tree.
func (t *Tree) Len() int { return len(t.points) }

// Bounds returns the root bounding box.
func (t *Tree) Bounds() Box { return t.root.box }

// Leaves returns the leaves in in-order traversal order.
func (t *Tree) Leaves() []Leaf { return t.leaves }

// LeafRank returns the in-order rank of the leaf holding point i.
func (t *Tree) LeafRank(i int) int { return t.rankOf[i] }

// PointAt returns the coordinates of point i.
func (t *Tree) PointAt(i int) phasespace.Vec3 { return t.points[i] }
