// Package watergo computes hierarchical segmentations of volumetric
// affinity graphs.
//
// Given per-voxel, per-direction affinities describing how likely
// neighboring voxels belong to the same object, the engine produces an
// initial over-segmentation via a watershed transform, then greedily merges
// adjacent regions by a configurable scoring rule, emitting one dense label
// volume per caller-supplied threshold.
//
// # Quick Start
//
//	g, _ := affinity.New([]int{64, 64, 64}, weights)
//	res, _ := watergo.Run(ctx, g, []float64{0.2, 0.5},
//	    watergo.WithScorePolicy(score.Policy{Kind: score.Mean}),
//	    watergo.WithMinFragmentSize(16),
//	)
//	labels := res.Segmentations[1] // dense labels at threshold 0.5
//
// Or with the fluent builder:
//
//	res, _ := watergo.Volume(64, 64, 64).
//	    Weights(weights).
//	    Mean().
//	    MinFragmentSize(16).
//	    Thresholds(0.2, 0.5).
//	    Run(ctx)
//
// # Determinism
//
// Merge order is total: edges are popped by score with ties broken by
// ascending region-id pairs, so two runs on identical input and options
// yield identical label assignments. Parallelism only touches the
// read-only watershed and accumulation passes; results are deterministic
// for a fixed worker count.
//
// # Threshold semantics
//
// Thresholds are score cutoffs and must be supplied ascending. Under the
// default MergeHighestFirst direction every merge whose edge score is at or
// above a threshold is included in that threshold's segmentation, so a
// lower threshold yields a coarser segmentation. Under MergeLowestFirst the
// relation flips. Thresholds beyond the last reachable score receive the
// terminal segmentation.
//
// The agglomeration loop itself is inherently sequential; independent
// volumes should be processed by independent runs, which share no state.
package watergo
