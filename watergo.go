package watergo

import (
	"context"

	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/agglo"
	"github.com/voxelize/watergo/rag"
	"github.com/voxelize/watergo/segment"
	"github.com/voxelize/watergo/watershed"
)

// Result holds the outputs of one engine run. Labels are dense 1..k per
// segmentation and stable only within this call.
type Result struct {
	// Thresholds echoes the requested thresholds, in the caller's order.
	Thresholds []float64

	// Segmentations holds one dense label volume per threshold, in the same
	// order as Thresholds. Every voxel carries exactly one label.
	Segmentations [][]uint64

	// RegionCounts holds the number of distinct regions per segmentation.
	RegionCounts []uint64

	// Fragments is the number of fragments agglomeration started from.
	Fragments uint64

	// Merges is the total number of merges performed.
	Merges uint64

	// History is the merge event log; present only with WithMergeHistory.
	History []agglo.MergeEvent

	// RegionGraph is the terminal region adjacency graph; present only with
	// WithRegionGraph. Region ids refer to raw representatives, not the
	// dense per-threshold labels.
	RegionGraph []segment.RegionEdge
}

// Run computes the hierarchical segmentation of an affinity graph.
//
// The pipeline is watershed → region graph → greedy agglomeration; one dense
// label volume is returned per requested threshold. Thresholds must be
// ascending. Two runs on identical input and options produce identical label
// assignments.
//
// A run is a one-shot computation: ctx is consulted between phases, never
// inside the merge loop. Callers needing early termination should run it in
// a cancellable worker and discard the result.
func Run(ctx context.Context, g *affinity.Graph, thresholds []float64, optFns ...Option) (*Result, error) {
	opts := applyOptions(optFns)

	if len(thresholds) == 0 {
		return nil, ErrNoThresholds
	}

	var frags *watershed.Fragments
	if opts.fragments != nil {
		if uint64(len(opts.fragments)) != g.Len() {
			return nil, ErrFragmentCount
		}
		frags = watershed.FromLabels(opts.fragments)
	} else {
		var err error
		frags, err = watershed.Run(ctx, g, func(o *watershed.Options) {
			o.LowThreshold = opts.lowThreshold
			o.MinFragmentSize = opts.minFragmentSize
			o.Workers = opts.workers
		})
		if err != nil {
			return nil, err
		}
	}
	opts.logger.LogWatershed(ctx, g.Len(), frags.Count())

	rg, err := rag.Build(ctx, g, frags.Labels, opts.policy, func(o *rag.Options) {
		o.Workers = opts.workers
	})
	if err != nil {
		return nil, err
	}
	opts.logger.LogRegionGraph(ctx, rg.RegionCount(), rg.EdgeCount())

	outcome, err := agglo.Run(ctx, rg, frags.UF, frags.Labels, thresholds, func(o *agglo.Options) {
		o.Direction = opts.direction
		o.Constraint = opts.constraint
		o.History = opts.returnHistory
	})
	opts.logger.LogAgglomeration(ctx, merges(outcome), len(thresholds), err)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Thresholds:    append([]float64(nil), thresholds...),
		Segmentations: make([][]uint64, len(outcome.Snapshots)),
		RegionCounts:  make([]uint64, len(outcome.Snapshots)),
		Fragments:     frags.Count(),
		Merges:        outcome.Merges,
		History:       outcome.History,
	}
	for i, snap := range outcome.Snapshots {
		labels, count := segment.Relabel(snap.Labels)
		res.Segmentations[i] = labels
		res.RegionCounts[i] = count
		opts.logger.LogSnapshot(ctx, snap.Threshold, count)
	}
	if opts.returnGraph {
		res.RegionGraph = segment.ExportGraph(rg)
	}
	return res, nil
}

func merges(o *agglo.Outcome) uint64 {
	if o == nil {
		return 0
	}
	return o.Merges
}
