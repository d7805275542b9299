// Package watershed partitions an affinity grid into fragments: connected
// regions of voxels flowing to the same local affinity maximum.
//
// The transform is edge-centric steepest ascent: every voxel's maximal
// eligible incident affinity is computed first, then every edge attaining
// the maximum of either endpoint is contracted. Voxels connected through
// such edges share a basin; plateau components (equal maximal weights)
// collapse into one fragment. A minimum-fragment-size post-pass absorbs
// undersized fragments into their best neighbor.
package watershed

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/rag"
	"github.com/voxelize/watergo/score"
	"github.com/voxelize/watergo/unionfind"
)

// Options contains configuration options for the watershed engine.
type Options struct {
	// LowThreshold cuts edges: an edge participates only when its affinity
	// is strictly above this value. Voxels with no eligible edge stay
	// singleton fragments.
	LowThreshold float32

	// MinFragmentSize absorbs every fragment smaller than this into the
	// neighboring fragment with the highest mean crossing affinity,
	// repeated until no fragment is undersized or none can merge.
	// Zero or one disables the pass.
	MinFragmentSize uint64

	// Workers parallelizes the per-voxel maximum pass over voxel ranges.
	// The union phase is always sequential, so results do not depend on
	// the worker count.
	Workers int
}

// DefaultOptions contains the default watershed options.
var DefaultOptions = Options{
	LowThreshold:    0,
	MinFragmentSize: 0,
	Workers:         1,
}

// Fragments is the initial fragmentation of a volume.
type Fragments struct {
	// Labels maps each voxel's linear index to its fragment representative.
	// Representatives are voxel indices and fully resolved.
	Labels []uint64

	// Set holds the distinct fragment representatives.
	Set *roaring64.Bitmap

	// UF is the union-find seeded by the fragmentation. The agglomerator
	// continues mutating it; it is owned by one run.
	UF *unionfind.UnionFind
}

// Count returns the number of distinct fragments.
func (f *Fragments) Count() uint64 { return f.Set.GetCardinality() }

// Run computes the fragmentation of the affinity graph.
func Run(ctx context.Context, g *affinity.Graph, optFns ...func(o *Options)) (*Fragments, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	n := g.Len()

	// Per-voxel maximum eligible incident affinity: pure reads, parallel
	// over voxel ranges. A value of LowThreshold means no eligible edge.
	maxw := make([]float32, n)
	chunk := (n + uint64(opts.Workers) - 1) / uint64(opts.Workers)
	eg, _ := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		lo := uint64(w) * chunk
		hi := lo + chunk
		if lo > n {
			lo = n
		}
		if hi > n {
			hi = n
		}
		eg.Go(func() error {
			maxIncident(g, maxw, lo, hi, opts.LowThreshold)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Sequential union phase: contract every edge attaining the maximal
	// affinity of either endpoint. The resulting components are exactly the
	// steepest-ascent basins, with plateaus collapsed.
	uf := unionfind.New(n)
	g.EdgesInRange(0, n, func(u, v uint64, _ int, w float32) {
		if w > opts.LowThreshold && (w >= maxw[u] || w >= maxw[v]) {
			uf.Union(u, v)
		}
	})

	labels := make([]uint64, n)
	for v := uint64(0); v < n; v++ {
		labels[v] = uf.Find(v)
	}

	if opts.MinFragmentSize > 1 && uf.Count() > 1 {
		if err := absorbUndersized(ctx, g, labels, uf, opts); err != nil {
			return nil, err
		}
		for v := uint64(0); v < n; v++ {
			labels[v] = uf.Find(labels[v])
		}
	}

	set := roaring64.New()
	for _, lbl := range labels {
		set.Add(lbl)
	}
	return &Fragments{Labels: labels, Set: set, UF: uf}, nil
}

// FromLabels wraps a caller-supplied fragmentation, skipping the watershed.
// Label values are arbitrary; internally each fragment is represented by its
// lowest voxel index.
func FromLabels(labels []uint64) *Fragments {
	uf := unionfind.FromLabels(labels)
	resolved := make([]uint64, len(labels))
	set := roaring64.New()
	for v := range labels {
		resolved[v] = uf.Find(uint64(v))
		set.Add(resolved[v])
	}
	return &Fragments{Labels: resolved, Set: set, UF: uf}
}

// maxIncident fills maxw[lo:hi] with each voxel's maximal incident affinity
// strictly above the low threshold, or the threshold itself when none is.
func maxIncident(g *affinity.Graph, maxw []float32, lo, hi uint64, low float32) {
	dims := g.Dims()
	for v := lo; v < hi; v++ {
		best := low
		for d := 0; d < dims; d++ {
			if g.HasNeighbor(v, d) {
				if w := g.Weight(v, d); w > best {
					best = w
				}
			}
			if g.Coord(v, d) > 0 {
				if w := g.Weight(v-g.Stride(d), d); w > best {
					best = w
				}
			}
		}
		maxw[v] = best
	}
}

// absorbUndersized merges every fragment below the size threshold into its
// highest-mean-affinity neighbor, iterating to a fixed point. Fragments with
// no neighbors are left alone; the loop is bounded by the fragment count
// because every round performs at least one merge or stops.
func absorbUndersized(ctx context.Context, g *affinity.Graph, labels []uint64, uf *unionfind.UnionFind, opts Options) error {
	rg, err := rag.Build(ctx, g, labels, score.Policy{Kind: score.Mean}, func(o *rag.Options) {
		o.Workers = opts.Workers
	})
	if err != nil {
		return err
	}

	for {
		var undersized []uint64
		for _, r := range rg.Regions() {
			if uf.Size(r) < opts.MinFragmentSize {
				undersized = append(undersized, r)
			}
		}
		if len(undersized) == 0 {
			return nil
		}

		merged := false
		for _, r := range undersized {
			if !rg.Live(r) || uf.Size(r) >= opts.MinFragmentSize {
				continue
			}
			best, ok := bestNeighbor(rg, r)
			if !ok {
				continue
			}
			rg.MergeRegions(uf, r, best)
			merged = true
		}
		if !merged {
			return nil
		}
	}
}

// bestNeighbor picks the neighbor with the highest mean crossing affinity,
// ties broken by the lowest region id. The full ordering makes the choice
// independent of map iteration order.
func bestNeighbor(rg *rag.Graph, r uint64) (uint64, bool) {
	var best uint64
	var bestScore float64
	found := false
	for n, e := range rg.Neighbors(r) {
		s := e.Score()
		if !found || s > bestScore || (s == bestScore && n < best) {
			best = n
			bestScore = s
			found = true
		}
	}
	return best, found
}
