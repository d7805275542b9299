// This file implements the fluent builder API for configuring and running
// the segmentation engine. Builders are immutable - each method returns a
// new builder with the updated configuration.
package watergo

import (
	"context"

	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/agglo"
	"github.com/voxelize/watergo/score"
)

// Volume creates a builder for a grid of the given shape.
//
// Example:
//
//	res, err := watergo.Volume(128, 128, 128).
//	    Weights(affs).
//	    Mean().
//	    MinFragmentSize(64).
//	    Thresholds(0.2, 0.5, 0.8).
//	    Run(ctx)
func Volume(shape ...int) Builder {
	return Builder{shape: shape}
}

// Builder is an immutable fluent builder for one engine run.
// Each method returns a new builder with the updated configuration.
type Builder struct {
	shape      []int
	weights    [][]float32
	thresholds []float64
	opts       []Option
}

// Weights sets the per-axis affinity arrays.
func (b Builder) Weights(w [][]float32) Builder {
	b.weights = w
	return b
}

// Thresholds sets the ascending segmentation thresholds.
func (b Builder) Thresholds(ts ...float64) Builder {
	b.thresholds = ts
	return b
}

// Mean scores edges with the mean crossing affinity.
func (b Builder) Mean() Builder {
	return b.with(WithScorePolicy(score.Policy{Kind: score.Mean}))
}

// Max scores edges with the maximum crossing affinity.
func (b Builder) Max() Builder {
	return b.with(WithScorePolicy(score.Policy{Kind: score.Max}))
}

// Min scores edges with the minimum crossing affinity.
func (b Builder) Min() Builder {
	return b.with(WithScorePolicy(score.Policy{Kind: score.Min}))
}

// Quantile scores edges with the q-quantile of crossing affinities.
func (b Builder) Quantile(q float64) Builder {
	return b.with(WithScorePolicy(score.ByQuantile(q)))
}

// MinFragmentSize absorbs undersized watershed fragments before merging.
func (b Builder) MinFragmentSize(n uint64) Builder {
	return b.with(WithMinFragmentSize(n))
}

// MaxRegionSize refuses merges creating regions above the given voxel count.
func (b Builder) MaxRegionSize(n uint64) Builder {
	return b.with(WithSizeConstraint(agglo.MaxSize(n)))
}

// Direction sets the merge direction.
func (b Builder) Direction(d agglo.Direction) Builder {
	return b.with(WithMergeDirection(d))
}

// Fragments supplies a precomputed fragmentation, skipping the watershed.
func (b Builder) Fragments(labels []uint64) Builder {
	return b.with(WithFragments(labels))
}

// History includes the merge event log in the result.
func (b Builder) History() Builder {
	return b.with(WithMergeHistory())
}

// RegionGraph includes the terminal region graph in the result.
func (b Builder) RegionGraph() Builder {
	return b.with(WithRegionGraph())
}

// Workers parallelizes the watershed and region graph phases.
func (b Builder) Workers(n int) Builder {
	return b.with(WithWorkers(n))
}

// Logger sets the structured logger.
func (b Builder) Logger(l *Logger) Builder {
	return b.with(WithLogger(l))
}

// Run validates the configuration, builds the affinity graph and executes
// the engine.
func (b Builder) Run(ctx context.Context) (*Result, error) {
	g, err := affinity.New(b.shape, b.weights)
	if err != nil {
		return nil, err
	}
	return Run(ctx, g, b.thresholds, b.opts...)
}

func (b Builder) with(opt Option) Builder {
	opts := make([]Option, len(b.opts), len(b.opts)+1)
	copy(opts, b.opts)
	b.opts = append(opts, opt)
	return b
}
