// Package rag implements the region adjacency graph: an edge-weighted graph
// over segmentation regions whose edge scores aggregate all voxel-level
// affinities crossing each region pair.
package rag

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/voxelize/watergo/score"
	"github.com/voxelize/watergo/unionfind"
)

// Edge is the single edge between the unordered region pair (U, V), U < V.
//
// Rev is a revision stamp drawn from a graph-global generation counter:
// every insertion or statistics change assigns a fresh value. A revision is
// never reused, even when a pair is removed and later recreated through
// coalescing, so a priority-queue entry matches only the exact edge state
// it was pushed for.
type Edge struct {
	U, V  uint64
	Stats score.Stats
	Rev   uint32
}

// Score returns the aggregated edge score under the graph's policy.
func (e *Edge) Score() float64 { return e.Stats.Score() }

// Count returns the number of voxel pairs crossing the edge.
func (e *Edge) Count() uint64 { return e.Stats.Count() }

// Other returns the edge endpoint that is not r.
func (e *Edge) Other(r uint64) uint64 {
	if e.U == r {
		return e.V
	}
	return e.U
}

// Graph is a mutable region adjacency graph. Region ids are union-find
// representatives; the graph holds at most one edge per unordered pair.
// It is exclusively owned by one agglomeration run and is not safe for
// concurrent mutation.
type Graph struct {
	adj      map[uint64]map[uint64]*Edge
	live     *roaring64.Bitmap
	edges    int
	gen      uint32
	newStats func() score.Stats
}

// NewGraph returns an empty graph aggregating edges under the given policy.
// Lo and hi bound the weight range for histogram-backed policies.
func NewGraph(pol score.Policy, lo, hi float32) (*Graph, error) {
	newStats, err := score.NewAccumulator(pol, func(o *score.Options) {
		o.Lo = lo
		o.Hi = hi
	})
	if err != nil {
		return nil, err
	}
	return &Graph{
		adj:      make(map[uint64]map[uint64]*Edge),
		live:     roaring64.New(),
		newStats: newStats,
	}, nil
}

// AddRegion marks a region id as live, so isolated regions (no adjacency)
// still appear in region counts and exports.
func (g *Graph) AddRegion(r uint64) {
	g.live.Add(r)
}

// Accumulate records one crossing affinity between regions a and b,
// creating the edge if it does not exist yet.
func (g *Graph) Accumulate(a, b uint64, w float32) {
	e := g.ensureEdge(a, b)
	e.Stats.Add(w)
}

// accumulateStats folds a pre-aggregated accumulator into the edge (a, b).
// Used by the parallel builder's reduction phase.
func (g *Graph) accumulateStats(a, b uint64, st score.Stats) {
	u, v := canonical(a, b)
	if e, ok := g.edge(u, v); ok {
		e.Stats.Merge(st)
		return
	}
	g.insert(&Edge{U: u, V: v, Stats: st})
}

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int { return g.edges }

// RegionCount returns the number of live regions.
func (g *Graph) RegionCount() uint64 { return g.live.GetCardinality() }

// Regions returns the live region ids in ascending order.
func (g *Graph) Regions() []uint64 { return g.live.ToArray() }

// Live reports whether r is a live region.
func (g *Graph) Live(r uint64) bool { return g.live.Contains(r) }

// Edge returns the edge between a and b, if present.
func (g *Graph) Edge(a, b uint64) (*Edge, bool) {
	u, v := canonical(a, b)
	return g.edge(u, v)
}

// Neighbors returns the adjacency map of region r. The returned map is
// owned by the graph and must not be mutated by the caller.
func (g *Graph) Neighbors(r uint64) map[uint64]*Edge {
	return g.adj[r]
}

// RemoveEdge deletes the edge between a and b without merging. Used when a
// size constraint rejects a merge; the pair can only reappear through
// coalescing, which produces a fresh score.
func (g *Graph) RemoveEdge(a, b uint64) {
	u, v := canonical(a, b)
	g.remove(u, v)
}

// MergeRegions merges regions a and b: the union-find union decides the
// surviving representative, the merged edge disappears, and every edge of
// the absorbed region is folded into the survivor, coalescing parallel
// edges via the policy's Merge. It returns the survivor and every edge whose
// statistics changed (each restamped with a fresh revision), so the caller
// can re-enqueue them. The edge count strictly decreases by at least one.
func (g *Graph) MergeRegions(uf *unionfind.UnionFind, a, b uint64) (uint64, []*Edge) {
	g.remove(canonical(a, b))

	s := uf.Union(a, b)
	o := a
	if s == a {
		o = b
	}

	var touched []*Edge
	for n, e := range g.adj[o] {
		g.remove(canonical(o, n))
		if ex, ok := g.edge(canonical(s, n)); ok {
			ex.Stats.Merge(e.Stats)
			g.gen++
			ex.Rev = g.gen
			touched = append(touched, ex)
		} else {
			u, v := canonical(s, n)
			ne := &Edge{U: u, V: v, Stats: e.Stats}
			g.insert(ne)
			touched = append(touched, ne)
		}
	}
	delete(g.adj, o)
	g.live.Remove(o)
	return s, touched
}

// Edges returns all live edges sorted by ascending (U, V) for stable export.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, g.edges)
	seen := make(map[[2]uint64]struct{}, g.edges)
	for _, nbrs := range g.adj {
		for _, e := range nbrs {
			key := [2]uint64{e.U, e.V}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].U != out[j].U {
			return out[i].U < out[j].U
		}
		return out[i].V < out[j].V
	})
	return out
}

func (g *Graph) ensureEdge(a, b uint64) *Edge {
	u, v := canonical(a, b)
	if e, ok := g.edge(u, v); ok {
		return e
	}
	e := &Edge{U: u, V: v, Stats: g.newStats()}
	g.insert(e)
	return e
}

func (g *Graph) edge(u, v uint64) (*Edge, bool) {
	nbrs, ok := g.adj[u]
	if !ok {
		return nil, false
	}
	e, ok := nbrs[v]
	return e, ok
}

func (g *Graph) insert(e *Edge) {
	g.gen++
	e.Rev = g.gen
	if g.adj[e.U] == nil {
		g.adj[e.U] = make(map[uint64]*Edge)
	}
	if g.adj[e.V] == nil {
		g.adj[e.V] = make(map[uint64]*Edge)
	}
	g.adj[e.U][e.V] = e
	g.adj[e.V][e.U] = e
	g.live.Add(e.U)
	g.live.Add(e.V)
	g.edges++
}

func (g *Graph) remove(u, v uint64) {
	if _, ok := g.edge(u, v); !ok {
		return
	}
	delete(g.adj[u], v)
	delete(g.adj[v], u)
	g.edges--
}

func canonical(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}
