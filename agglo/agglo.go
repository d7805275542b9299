// Package agglo implements greedy score-ordered agglomeration of a region
// adjacency graph: the extremal edge is merged repeatedly, the graph and
// union-find are updated incrementally, and a segmentation snapshot is taken
// whenever the score crosses a caller-supplied threshold.
package agglo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/voxelize/watergo/internal/queue"
	"github.com/voxelize/watergo/rag"
	"github.com/voxelize/watergo/unionfind"
)

var (
	// ErrUnsortedThresholds is returned when thresholds are not ascending.
	// The engine fails fast instead of sorting silently, so the mapping from
	// thresholds to outputs is always the caller's own order.
	ErrUnsortedThresholds = errors.New("thresholds must be in ascending order")

	// ErrInvalidThreshold is returned for a NaN threshold.
	ErrInvalidThreshold = errors.New("threshold must not be NaN")
)

// Direction selects which end of the score order merges first.
type Direction int

const (
	// MergeHighestFirst pops the highest-scoring edge first. This is the
	// natural direction for affinity-style scores, where a high score means
	// the regions likely belong together.
	MergeHighestFirst Direction = iota

	// MergeLowestFirst pops the lowest-scoring edge first, for
	// discordance-style scores where low means similar.
	MergeLowestFirst
)

// String returns a string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case MergeHighestFirst:
		return "MergeHighestFirst"
	case MergeLowestFirst:
		return "MergeLowestFirst"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// SizeConstraint decides whether two regions of the given voxel counts may
// merge. Implementations must be pure functions of the sizes.
type SizeConstraint interface {
	Permit(sizeA, sizeB uint64) bool
	String() string
}

var (
	_ SizeConstraint = Unconstrained{}
	_ SizeConstraint = (*maxSizeConstraint)(nil)
	_ SizeConstraint = (*maxRatioConstraint)(nil)
)

// Unconstrained permits every merge.
type Unconstrained struct{}

// Permit always returns true.
func (Unconstrained) Permit(_, _ uint64) bool { return true }

func (Unconstrained) String() string { return "Unconstrained" }

type maxSizeConstraint struct {
	limit uint64
}

// MaxSize refuses merges that would create a region larger than limit voxels.
func MaxSize(limit uint64) SizeConstraint {
	return &maxSizeConstraint{limit: limit}
}

func (c *maxSizeConstraint) Permit(a, b uint64) bool { return a+b <= c.limit }

func (c *maxSizeConstraint) String() string { return fmt.Sprintf("MaxSize(%d)", c.limit) }

type maxRatioConstraint struct {
	ratio float64
}

// MaxRatio refuses merges between regions whose sizes differ by more than
// the given ratio.
func MaxRatio(ratio float64) SizeConstraint {
	return &maxRatioConstraint{ratio: ratio}
}

func (c *maxRatioConstraint) Permit(a, b uint64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if a < b {
		a, b = b, a
	}
	return float64(a)/float64(b) <= c.ratio
}

func (c *maxRatioConstraint) String() string { return fmt.Sprintf("MaxRatio(%g)", c.ratio) }

// MergeEvent records one merge: the two region ids, the surviving id, the
// edge score and the resulting voxel count. Seq is the merge sequence
// number; scores read in sequence order are monotone per the direction.
type MergeEvent struct {
	Seq    uint64
	A      uint64
	B      uint64
	Result uint64
	Score  float64
	Size   uint64
}

// Snapshot is the segmentation state associated with one threshold:
// every voxel labeled with its region representative at that point.
type Snapshot struct {
	Threshold float64
	Labels    []uint64
}

// Options contains configuration options for an agglomeration run.
type Options struct {
	// Direction selects which end of the score order merges first.
	Direction Direction

	// Constraint refuses pathological merges. A refused edge is removed
	// from the graph and never revisited with the same stale score.
	// Nil means unconstrained.
	Constraint SizeConstraint

	// History records the full merge event log.
	History bool
}

// DefaultOptions contains the default agglomeration options.
var DefaultOptions = Options{
	Direction:  MergeHighestFirst,
	Constraint: nil,
	History:    false,
}

// Outcome is the result of one agglomeration run.
type Outcome struct {
	// Snapshots holds one segmentation per requested threshold, in the
	// caller's threshold order. Labels are raw region representatives.
	Snapshots []Snapshot

	// History is the merge event log, present only when requested.
	History []MergeEvent

	// Merges is the total number of merges performed.
	Merges uint64
}

// Run agglomerates the graph until no edges remain, no permissible merge
// remains, or every threshold has been snapshotted, whichever comes first.
// Thresholds beyond the last reachable score receive the final segmentation.
//
// The graph and union-find are exclusively owned by this run and are left in
// their terminal state. fragLabels maps voxels to fragment representatives
// and is only read.
//
// A run is a one-shot deterministic computation: ctx is consulted before the
// merge loop starts, not inside it.
func Run(ctx context.Context, g *rag.Graph, uf *unionfind.UnionFind, fragLabels []uint64, thresholds []float64, optFns ...func(o *Options)) (*Outcome, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := validateThresholds(thresholds); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Processing order: merging highest-first crosses high cutoffs early,
	// so thresholds are visited descending; lowest-first visits ascending.
	// Snapshots land at the caller's original positions either way.
	order := make([]int, len(thresholds))
	for i := range order {
		if opts.Direction == MergeHighestFirst {
			order[i] = len(thresholds) - 1 - i
		} else {
			order[i] = i
		}
	}

	var q *queue.EdgeQueue
	if opts.Direction == MergeHighestFirst {
		q = queue.NewMax(g.EdgeCount())
	} else {
		q = queue.NewMin(g.EdgeCount())
	}
	for _, e := range g.Edges() {
		q.Push(queue.Item{U: e.U, V: e.V, Score: e.Score(), Rev: e.Rev})
	}

	out := &Outcome{Snapshots: make([]Snapshot, len(thresholds))}

	takeSnapshot := func(idx int) {
		labels := make([]uint64, len(fragLabels))
		for v, fr := range fragLabels {
			labels[v] = uf.Find(fr)
		}
		out.Snapshots[idx] = Snapshot{Threshold: thresholds[idx], Labels: labels}
	}

	crossed := func(s, t float64) bool {
		if opts.Direction == MergeHighestFirst {
			return s < t
		}
		return s > t
	}

	ti := 0
	for {
		top, ok := q.Top()
		if !ok {
			break
		}
		e, live := g.Edge(top.U, top.V)
		if !live || e.Rev != top.Rev {
			q.Pop() // stale entry, lazily discarded
			continue
		}

		for ti < len(order) && crossed(top.Score, thresholds[order[ti]]) {
			takeSnapshot(order[ti])
			ti++
		}
		if ti == len(order) {
			break
		}

		q.Pop()
		if opts.Constraint != nil && !opts.Constraint.Permit(uf.Size(top.U), uf.Size(top.V)) {
			g.RemoveEdge(top.U, top.V)
			continue
		}

		survivor, touched := g.MergeRegions(uf, top.U, top.V)
		for _, te := range touched {
			q.Push(queue.Item{U: te.U, V: te.V, Score: te.Score(), Rev: te.Rev})
		}
		if opts.History {
			out.History = append(out.History, MergeEvent{
				Seq:    out.Merges,
				A:      top.U,
				B:      top.V,
				Result: survivor,
				Score:  top.Score,
				Size:   uf.Size(survivor),
			})
		}
		out.Merges++
	}

	// Unreached thresholds map to the terminal (best-effort) segmentation;
	// a size-constraint deadlock lands here too and is not an error.
	for ; ti < len(order); ti++ {
		takeSnapshot(order[ti])
	}
	return out, nil
}

func validateThresholds(thresholds []float64) error {
	for i, t := range thresholds {
		if math.IsNaN(t) {
			return ErrInvalidThreshold
		}
		if i > 0 && t < thresholds[i-1] {
			return ErrUnsortedThresholds
		}
	}
	return nil
}
