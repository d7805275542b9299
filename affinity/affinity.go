// Package affinity provides an immutable view over an N-dimensional voxel
// grid with one real-valued affinity per voxel per positive axis direction.
package affinity

import (
	"fmt"
	"math"
)

// ErrShapeMismatch indicates that a weight array is inconsistent with the
// declared grid shape.
type ErrShapeMismatch struct {
	Axis     int // Axis of the offending weight array, or -1 for the array count
	Expected int
	Actual   int
}

func (e *ErrShapeMismatch) Error() string {
	if e.Axis < 0 {
		return fmt.Sprintf("shape mismatch: expected %d weight arrays, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("shape mismatch: axis %d expects %d weights, got %d", e.Axis, e.Expected, e.Actual)
}

// ErrInvalidWeight indicates a non-finite or out-of-range affinity value.
// Weights are never silently clamped.
type ErrInvalidWeight struct {
	Axis   int
	Index  uint64
	Weight float32
}

func (e *ErrInvalidWeight) Error() string {
	return fmt.Sprintf("invalid weight %v at axis %d index %d", e.Weight, e.Axis, e.Index)
}

// ErrInvalidShape indicates an empty or non-positive grid shape.
type ErrInvalidShape struct {
	Shape []int
}

func (e *ErrInvalidShape) Error() string {
	return fmt.Sprintf("invalid grid shape %v", e.Shape)
}

// Options contains configuration options for an affinity graph.
type Options struct {
	// Min and Max declare the valid weight range. Weights outside the range
	// fail construction with ErrInvalidWeight.
	Min float32
	Max float32
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Min: 0,
	Max: 1,
}

// Graph is an immutable affinity graph over a row-major N-D voxel grid.
//
// The weight of the canonical undirected edge between voxel v and its
// positive neighbor along axis d is stored at the linear index of v in the
// axis-d weight array. Entries for voxels on the far face of an axis have no
// neighbor and are ignored.
type Graph struct {
	shape   []int
	strides []uint64
	weights [][]float32
	n       uint64
	opts    Options
}

// New validates the shape and weight arrays and returns the graph view.
// Validation happens up front: no computation consumes a graph that was not
// fully validated, and no partial state is produced on failure.
func New(shape []int, weights [][]float32, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(shape) == 0 {
		return nil, &ErrInvalidShape{Shape: shape}
	}
	n := uint64(1)
	for _, dim := range shape {
		if dim <= 0 {
			return nil, &ErrInvalidShape{Shape: shape}
		}
		n *= uint64(dim)
	}
	if len(weights) != len(shape) {
		return nil, &ErrShapeMismatch{Axis: -1, Expected: len(shape), Actual: len(weights)}
	}
	for d, w := range weights {
		if uint64(len(w)) != n {
			return nil, &ErrShapeMismatch{Axis: d, Expected: int(n), Actual: len(w)}
		}
		for i, v := range w {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) || v < opts.Min || v > opts.Max {
				return nil, &ErrInvalidWeight{Axis: d, Index: uint64(i), Weight: v}
			}
		}
	}

	strides := make([]uint64, len(shape))
	strides[len(shape)-1] = 1
	for d := len(shape) - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * uint64(shape[d+1])
	}

	return &Graph{
		shape:   append([]int(nil), shape...),
		strides: strides,
		weights: weights,
		n:       n,
		opts:    opts,
	}, nil
}

// Len returns the number of voxels in the grid.
func (g *Graph) Len() uint64 { return g.n }

// Dims returns the number of grid dimensions.
func (g *Graph) Dims() int { return len(g.shape) }

// Shape returns a copy of the grid shape.
func (g *Graph) Shape() []int { return append([]int(nil), g.shape...) }

// Range returns the declared weight range.
func (g *Graph) Range() (min, max float32) { return g.opts.Min, g.opts.Max }

// Stride returns the linear-index stride along the given axis.
func (g *Graph) Stride(axis int) uint64 { return g.strides[axis] }

// Coord returns the coordinate of the voxel at linear index idx along axis.
func (g *Graph) Coord(idx uint64, axis int) int {
	return int((idx / g.strides[axis]) % uint64(g.shape[axis]))
}

// HasNeighbor reports whether the voxel at idx has a positive neighbor
// along the given axis.
func (g *Graph) HasNeighbor(idx uint64, axis int) bool {
	return g.Coord(idx, axis) < g.shape[axis]-1
}

// Neighbor returns the linear index of the positive neighbor along axis.
// The caller must have checked HasNeighbor.
func (g *Graph) Neighbor(idx uint64, axis int) uint64 {
	return idx + g.strides[axis]
}

// Weight returns the affinity of the canonical edge between the voxel at idx
// and its positive neighbor along axis. The caller must have checked
// HasNeighbor; the stored value for a far-face voxel is meaningless.
func (g *Graph) Weight(idx uint64, axis int) float32 {
	return g.weights[axis][idx]
}

// EdgeCount returns the number of canonical undirected edges in the grid.
func (g *Graph) EdgeCount() uint64 {
	total := uint64(0)
	for _, dim := range g.shape {
		if dim < 2 {
			continue
		}
		total += g.n / uint64(dim) * uint64(dim-1)
	}
	return total
}

// EdgesInRange calls fn for every canonical edge whose lower voxel lies in
// [lo, hi). The callback receives the two voxel indices, the axis and the
// edge weight. Iteration order is fixed: voxel index ascending, axis
// ascending within a voxel.
func (g *Graph) EdgesInRange(lo, hi uint64, fn func(u, v uint64, axis int, w float32)) {
	for idx := lo; idx < hi; idx++ {
		for d := range g.shape {
			if !g.HasNeighbor(idx, d) {
				continue
			}
			fn(idx, g.Neighbor(idx, d), d, g.weights[d][idx])
		}
	}
}
