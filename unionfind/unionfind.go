// Package unionfind implements a disjoint-set forest over dense integer ids
// with path compression and union by size.
//
// The structure is scoped to a single segmentation run: it is created for one
// volume, mutated by the watershed and agglomeration phases, and discarded.
// Ids are always valid by construction (callers only reference ids < Len()),
// so no method returns an error.
package unionfind

// UnionFind partitions the ids 0..n-1 into disjoint sets.
// It is not safe for concurrent mutation.
type UnionFind struct {
	parent []uint64
	size   []uint64
	count  uint64
}

// New creates n singleton sets, one per id in 0..n-1.
func New(n uint64) *UnionFind {
	parent := make([]uint64, n)
	size := make([]uint64, n)
	for i := range parent {
		parent[i] = uint64(i)
		size[i] = 1
	}
	return &UnionFind{parent: parent, size: size, count: n}
}

// FromLabels builds a UnionFind over 0..len(labels)-1 where all ids carrying
// the same label belong to one set. The representative of each set is the
// lowest id carrying its label, so representatives are stable for a given
// labeling regardless of label values.
func FromLabels(labels []uint64) *UnionFind {
	n := uint64(len(labels))
	parent := make([]uint64, n)
	size := make([]uint64, n)
	rep := make(map[uint64]uint64, 64)
	count := uint64(0)

	for i, lbl := range labels {
		r, ok := rep[lbl]
		if !ok {
			r = uint64(i)
			rep[lbl] = r
			count++
		}
		parent[i] = r
		size[r]++
	}
	return &UnionFind{parent: parent, size: size, count: count}
}

// Find returns the representative of the set containing x,
// compressing the path along the way.
func (uf *UnionFind) Find(x uint64) uint64 {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		uf.parent[x], x = root, uf.parent[x]
	}
	return root
}

// Union merges the sets containing x and y and returns the surviving
// representative. The larger set survives; on equal sizes the set of the
// first argument survives, which keeps merge order deterministic.
func (uf *UnionFind) Union(x, y uint64) uint64 {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return rx
	}
	if uf.size[rx] < uf.size[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	uf.count--
	return rx
}

// Size returns the number of ids in the set containing x.
func (uf *UnionFind) Size(x uint64) uint64 {
	return uf.size[uf.Find(x)]
}

// Len returns the total number of ids.
func (uf *UnionFind) Len() uint64 {
	return uint64(len(uf.parent))
}

// Count returns the number of live sets.
func (uf *UnionFind) Count() uint64 {
	return uf.count
}
