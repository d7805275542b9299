package watergo

import (
	"log/slog"

	"github.com/voxelize/watergo/agglo"
	"github.com/voxelize/watergo/score"
)

type options struct {
	policy          score.Policy
	direction       agglo.Direction
	constraint      agglo.SizeConstraint
	minFragmentSize uint64
	lowThreshold    float32
	workers         int
	fragments       []uint64
	returnHistory   bool
	returnGraph     bool
	logger          *Logger
}

// Option configures a single engine run.
type Option func(*options)

// WithScorePolicy selects how crossing affinities aggregate into one edge
// score. Default: score.Mean.
func WithScorePolicy(p score.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMergeDirection selects whether agglomeration pops the highest- or
// lowest-scoring edge first. Default: agglo.MergeHighestFirst.
func WithMergeDirection(d agglo.Direction) Option {
	return func(o *options) {
		o.direction = d
	}
}

// WithSizeConstraint installs a size-constraint policy refusing pathological
// merges, e.g. agglo.MaxSize(n) or agglo.MaxRatio(r). Default: none.
func WithSizeConstraint(c agglo.SizeConstraint) Option {
	return func(o *options) {
		o.constraint = c
	}
}

// WithMinFragmentSize absorbs watershed fragments below this size into their
// best neighbor before agglomeration begins. Default: 0 (disabled).
func WithMinFragmentSize(n uint64) Option {
	return func(o *options) {
		o.minFragmentSize = n
	}
}

// WithWatershedLowThreshold cuts watershed edges at or below the given
// affinity; voxels with no eligible edge stay singleton fragments.
func WithWatershedLowThreshold(t float32) Option {
	return func(o *options) {
		o.lowThreshold = t
	}
}

// WithWorkers parallelizes the watershed steepest-edge pass and the region
// graph build. The merge loop itself is inherently sequential. Results are
// deterministic for a fixed worker count. Default: 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithFragments supplies a precomputed fragmentation (one label per voxel,
// arbitrary label values) and skips the watershed phase.
func WithFragments(labels []uint64) Option {
	return func(o *options) {
		o.fragments = labels
	}
}

// WithMergeHistory includes the full merge event log in the result.
func WithMergeHistory() Option {
	return func(o *options) {
		o.returnHistory = true
	}
}

// WithRegionGraph includes the terminal region adjacency graph in the result.
func WithRegionGraph() Option {
	return func(o *options) {
		o.returnGraph = true
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		policy:    score.Policy{Kind: score.Mean},
		direction: agglo.MergeHighestFirst,
		workers:   1,
		logger:    NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
