// Package score provides the pluggable scoring policies that aggregate
// voxel-level crossing affinities into a single region-graph edge score.
//
// Policies are plain data (a kind plus parameters), dispatched through the
// Stats capability interface. Every implementation keeps bounded state per
// edge regardless of how many voxel pairs cross it: mean keeps a running sum
// and count, min/max keep one extremum, and quantile keeps a fixed-size
// histogram over the declared weight range.
//
// All Stats operations are commutative and associative in the accumulated
// values, so parallel accumulation with an ordered reduction is exact for
// min/max/quantile and deterministic for mean.
package score

import (
	"fmt"
	"math"
)

// Kind enumerates the scoring policies.
type Kind int

const (
	// Mean scores an edge with the mean of its crossing affinities.
	Mean Kind = iota
	// Max scores an edge with the maximum crossing affinity.
	Max
	// Min scores an edge with the minimum crossing affinity.
	Min
	// Quantile scores an edge with the q-quantile of its crossing
	// affinities, approximated by a fixed-size histogram.
	Quantile
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case Mean:
		return "Mean"
	case Max:
		return "Max"
	case Min:
		return "Min"
	case Quantile:
		return "Quantile"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Policy selects a scoring policy. It is a tagged variant: Q is only
// meaningful for Kind Quantile.
type Policy struct {
	Kind Kind
	Q    float64
}

// ByQuantile returns the quantile policy for the given q in [0, 1].
func ByQuantile(q float64) Policy {
	return Policy{Kind: Quantile, Q: q}
}

// String returns a string representation of the Policy.
func (p Policy) String() string {
	if p.Kind == Quantile {
		return fmt.Sprintf("Quantile(%g)", p.Q)
	}
	return p.Kind.String()
}

// ErrInvalidPolicy indicates an unknown kind or out-of-range parameter.
type ErrInvalidPolicy struct {
	Policy Policy
}

func (e *ErrInvalidPolicy) Error() string {
	return fmt.Sprintf("invalid score policy: %s", e.Policy)
}

// Validate reports whether the policy is well formed.
func (p Policy) Validate() error {
	switch p.Kind {
	case Mean, Max, Min:
		return nil
	case Quantile:
		if math.IsNaN(p.Q) || p.Q < 0 || p.Q > 1 {
			return &ErrInvalidPolicy{Policy: p}
		}
		return nil
	default:
		return &ErrInvalidPolicy{Policy: p}
	}
}

// Stats accumulates the crossing affinities of one region-graph edge.
//
// Merge folds another accumulator of the same policy into the receiver;
// passing a mismatched implementation is a programming error and panics.
type Stats interface {
	// Add records one crossing affinity.
	Add(w float32)
	// Merge folds another accumulator of the same policy into the receiver.
	Merge(o Stats)
	// Score returns the aggregated edge score.
	Score() float64
	// Count returns the number of accumulated crossings.
	Count() uint64
}

// Options contains configuration options for accumulators.
type Options struct {
	// Lo and Hi bound the weight range used to bucket quantile histograms.
	// They must match the affinity graph's declared range.
	Lo float32
	Hi float32
}

// DefaultOptions contains the default accumulator options.
var DefaultOptions = Options{
	Lo: 0,
	Hi: 1,
}

// NewAccumulator returns a factory producing fresh Stats for the policy.
func NewAccumulator(p Policy, optFns ...func(o *Options)) (func() Stats, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	switch p.Kind {
	case Mean:
		return func() Stats { return &meanStats{} }, nil
	case Max:
		return func() Stats { return &maxStats{} }, nil
	case Min:
		return func() Stats { return &minStats{} }, nil
	default:
		q, lo, hi := p.Q, opts.Lo, opts.Hi
		return func() Stats { return &quantileStats{q: q, lo: lo, hi: hi} }, nil
	}
}

var (
	_ Stats = (*meanStats)(nil)
	_ Stats = (*maxStats)(nil)
	_ Stats = (*minStats)(nil)
	_ Stats = (*quantileStats)(nil)
)

type meanStats struct {
	sum float64
	n   uint64
}

func (s *meanStats) Add(w float32) {
	s.sum += float64(w)
	s.n++
}

func (s *meanStats) Merge(o Stats) {
	m := mustStats[*meanStats](o)
	s.sum += m.sum
	s.n += m.n
}

func (s *meanStats) Score() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

func (s *meanStats) Count() uint64 { return s.n }

type maxStats struct {
	max float32
	n   uint64
}

func (s *maxStats) Add(w float32) {
	if s.n == 0 || w > s.max {
		s.max = w
	}
	s.n++
}

func (s *maxStats) Merge(o Stats) {
	m := mustStats[*maxStats](o)
	if s.n == 0 || (m.n > 0 && m.max > s.max) {
		s.max = m.max
	}
	s.n += m.n
}

func (s *maxStats) Score() float64 { return float64(s.max) }

func (s *maxStats) Count() uint64 { return s.n }

type minStats struct {
	min float32
	n   uint64
}

func (s *minStats) Add(w float32) {
	if s.n == 0 || w < s.min {
		s.min = w
	}
	s.n++
}

func (s *minStats) Merge(o Stats) {
	m := mustStats[*minStats](o)
	if s.n == 0 || (m.n > 0 && m.min < s.min) {
		s.min = m.min
	}
	s.n += m.n
}

func (s *minStats) Score() float64 { return float64(s.min) }

func (s *minStats) Count() uint64 { return s.n }

// histogramBuckets bounds the per-edge memory of the quantile policy.
const histogramBuckets = 256

type quantileStats struct {
	q       float64
	lo, hi  float32
	n       uint64
	buckets [histogramBuckets]uint32
}

func (s *quantileStats) bucket(w float32) int {
	if s.hi <= s.lo {
		return 0
	}
	b := int(float64(w-s.lo) / float64(s.hi-s.lo) * histogramBuckets)
	if b < 0 {
		b = 0
	}
	if b >= histogramBuckets {
		b = histogramBuckets - 1
	}
	return b
}

func (s *quantileStats) Add(w float32) {
	s.buckets[s.bucket(w)]++
	s.n++
}

func (s *quantileStats) Merge(o Stats) {
	m := mustStats[*quantileStats](o)
	for i := range s.buckets {
		s.buckets[i] += m.buckets[i]
	}
	s.n += m.n
}

// Score returns the midpoint of the bucket holding the q-quantile.
func (s *quantileStats) Score() float64 {
	if s.n == 0 {
		return 0
	}
	rank := uint64(math.Ceil(s.q * float64(s.n)))
	if rank == 0 {
		rank = 1
	}
	cum := uint64(0)
	for i, c := range s.buckets {
		cum += uint64(c)
		if cum >= rank {
			width := float64(s.hi-s.lo) / histogramBuckets
			return float64(s.lo) + width*(float64(i)+0.5)
		}
	}
	return float64(s.hi)
}

func (s *quantileStats) Count() uint64 { return s.n }

func mustStats[T Stats](o Stats) T {
	m, ok := o.(T)
	if !ok {
		panic(fmt.Sprintf("score: cannot merge stats of different policies (%T vs %T)", m, o))
	}
	return m
}
