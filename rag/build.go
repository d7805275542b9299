package rag

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/score"
)

// ErrLabelCount indicates a fragmentation whose length does not match the
// affinity grid.
type ErrLabelCount struct {
	Expected uint64
	Actual   uint64
}

func (e *ErrLabelCount) Error() string {
	return fmt.Sprintf("label count mismatch: grid has %d voxels, got %d labels", e.Expected, e.Actual)
}

// Options contains configuration options for the builder.
type Options struct {
	// Workers shards the affinity scan across voxel ranges. The partial
	// accumulators are reduced in worker order, so results are deterministic
	// for a fixed worker count.
	Workers int
}

// DefaultOptions contains the default builder options.
var DefaultOptions = Options{
	Workers: 1,
}

// Build constructs the initial region adjacency graph from a fragmentation:
// one edge per adjacent fragment pair, aggregating every affinity edge that
// crosses the pair under the given policy. labels maps each voxel's linear
// index to its fragment representative and must already be fully resolved.
func Build(ctx context.Context, g *affinity.Graph, labels []uint64, pol score.Policy, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	n := g.Len()
	if uint64(len(labels)) != n {
		return nil, &ErrLabelCount{Expected: n, Actual: uint64(len(labels))}
	}

	lo, hi := g.Range()
	rg, err := NewGraph(pol, lo, hi)
	if err != nil {
		return nil, err
	}

	// Every fragment is a live region, adjacency or not.
	for _, lbl := range labels {
		rg.live.Add(lbl)
	}

	if opts.Workers == 1 {
		g.EdgesInRange(0, n, func(u, v uint64, _ int, w float32) {
			if labels[u] == labels[v] {
				return
			}
			rg.Accumulate(labels[u], labels[v], w)
		})
		return rg, nil
	}

	// Parallel pass: independent voxel ranges accumulate into per-worker
	// partial maps, reduced sequentially in worker order.
	type pair struct{ u, v uint64 }
	partials := make([]map[pair]score.Stats, opts.Workers)
	newStats, err := score.NewAccumulator(pol, func(o *score.Options) {
		o.Lo = lo
		o.Hi = hi
	})
	if err != nil {
		return nil, err
	}

	chunk := (n + uint64(opts.Workers) - 1) / uint64(opts.Workers)
	eg, _ := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		lo64 := uint64(w) * chunk
		hi64 := lo64 + chunk
		if lo64 > n {
			lo64 = n
		}
		if hi64 > n {
			hi64 = n
		}
		w := w
		eg.Go(func() error {
			local := make(map[pair]score.Stats)
			g.EdgesInRange(lo64, hi64, func(u, v uint64, _ int, wgt float32) {
				if labels[u] == labels[v] {
					return
				}
				a, b := canonical(labels[u], labels[v])
				st, ok := local[pair{a, b}]
				if !ok {
					st = newStats()
					local[pair{a, b}] = st
				}
				st.Add(wgt)
			})
			partials[w] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Fold partials in worker order and sorted pair order, so floating-point
	// accumulation does not depend on map iteration.
	for _, local := range partials {
		keys := make([]pair, 0, len(local))
		for p := range local {
			keys = append(keys, p)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].u != keys[j].u {
				return keys[i].u < keys[j].u
			}
			return keys[i].v < keys[j].v
		})
		for _, p := range keys {
			rg.accumulateStats(p.u, p.v, local[p])
		}
	}
	return rg, nil
}
