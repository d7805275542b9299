package watergo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelize/watergo"
	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/agglo"
	"github.com/voxelize/watergo/score"
	"github.com/voxelize/watergo/testutil"
)

// twoColumns is a 2x2x1 volume with two strongly bound columns and a weak
// boundary between them.
func twoColumns(t *testing.T) *affinity.Graph {
	t.Helper()
	g, err := affinity.New([]int{2, 2, 1}, [][]float32{
		{0.9, 0.9, 0, 0},
		{0.1, 0, 0.1, 0},
		{0, 0, 0, 0},
	})
	require.NoError(t, err)
	return g
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("TwoColumnScenario", func(t *testing.T) {
		res, err := watergo.Run(ctx, twoColumns(t), []float64{0.05, 0.5})
		require.NoError(t, err)

		assert.Equal(t, []float64{0.05, 0.5}, res.Thresholds)
		assert.Equal(t, uint64(2), res.Fragments)
		assert.Equal(t, uint64(1), res.Merges)

		// At 0.5 the 0.1 boundary survives; at 0.05 it merges away.
		assert.Equal(t, []uint64{1, 2}, res.RegionCounts)
		assert.Equal(t, []uint64{1, 1, 1, 1}, res.Segmentations[0])
		assert.Equal(t, []uint64{1, 2, 1, 2}, res.Segmentations[1])
	})

	t.Run("Deterministic", func(t *testing.T) {
		shape := []int{4, 4, 3}
		weights := testutil.NewRNG(11).UniformAffinities(shape)
		g, err := affinity.New(shape, weights)
		require.NoError(t, err)

		a, err := watergo.Run(ctx, g, []float64{0.3, 0.6}, watergo.WithMergeHistory())
		require.NoError(t, err)
		b, err := watergo.Run(ctx, g, []float64{0.3, 0.6}, watergo.WithMergeHistory())
		require.NoError(t, err)

		assert.Equal(t, a.Segmentations, b.Segmentations)
		assert.Equal(t, a.History, b.History)
	})

	t.Run("Hierarchy", func(t *testing.T) {
		shape := []int{4, 4, 2}
		weights := testutil.NewRNG(3).UniformAffinities(shape)
		g, err := affinity.New(shape, weights)
		require.NoError(t, err)

		res, err := watergo.Run(ctx, g, []float64{0.2, 0.5, 0.8})
		require.NoError(t, err)

		// Every voxel is labeled, labels are dense, and lower thresholds
		// only merge regions of higher ones.
		for i, seg := range res.Segmentations {
			require.Len(t, seg, int(g.Len()))
			for _, l := range seg {
				assert.GreaterOrEqual(t, l, uint64(1))
				assert.LessOrEqual(t, l, res.RegionCounts[i])
			}
			if i > 0 {
				assert.LessOrEqual(t, res.RegionCounts[i-1], res.RegionCounts[i])
				coarse, fine := res.Segmentations[i-1], seg
				for v := 0; v < len(fine); v++ {
					for w := v + 1; w < len(fine); w++ {
						if fine[v] == fine[w] {
							assert.Equal(t, coarse[v], coarse[w])
						}
					}
				}
			}
		}
	})

	t.Run("WorkerCountInvariant", func(t *testing.T) {
		shape := []int{4, 3, 3}
		weights := testutil.NewRNG(5).UniformAffinities(shape)
		// Exactly representable weights keep score sums independent of the
		// shard boundaries.
		for _, w := range weights {
			for i := range w {
				w[i] = float32(int(w[i]*16)) / 16
			}
		}
		g, err := affinity.New(shape, weights)
		require.NoError(t, err)

		serial, err := watergo.Run(ctx, g, []float64{0.25, 0.75})
		require.NoError(t, err)
		parallel, err := watergo.Run(ctx, g, []float64{0.25, 0.75}, watergo.WithWorkers(4))
		require.NoError(t, err)

		assert.Equal(t, serial.Segmentations, parallel.Segmentations)
	})

	t.Run("SuppliedFragments", func(t *testing.T) {
		res, err := watergo.Run(ctx, twoColumns(t), []float64{0.5},
			watergo.WithFragments([]uint64{7, 7, 7, 7}))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Fragments)
		assert.Equal(t, uint64(0), res.Merges)
		assert.Equal(t, []uint64{1, 1, 1, 1}, res.Segmentations[0])
	})

	t.Run("HistoryAndGraph", func(t *testing.T) {
		res, err := watergo.Run(ctx, twoColumns(t), []float64{0.5},
			watergo.WithMergeHistory(), watergo.WithRegionGraph())
		require.NoError(t, err)

		// Nothing merges at 0.5, so the boundary edge survives in the graph.
		assert.Empty(t, res.History)
		require.Len(t, res.RegionGraph, 1)
		assert.Equal(t, uint64(2), res.RegionGraph[0].Count)
		assert.InDelta(t, 0.1, res.RegionGraph[0].Score, 1e-6)
	})

	t.Run("MinFragmentSize", func(t *testing.T) {
		g, err := affinity.New([]int{3}, [][]float32{{0.9, 0.2, 0}})
		require.NoError(t, err)

		res, err := watergo.Run(ctx, g, []float64{0.95},
			watergo.WithWatershedLowThreshold(0.3),
			watergo.WithMinFragmentSize(2))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Fragments)
	})

	t.Run("Policies", func(t *testing.T) {
		for _, pol := range []score.Policy{
			{Kind: score.Mean},
			{Kind: score.Max},
			{Kind: score.Min},
			score.ByQuantile(0.5),
		} {
			res, err := watergo.Run(ctx, twoColumns(t), []float64{0.05},
				watergo.WithScorePolicy(pol))
			require.NoError(t, err, pol.Kind)
			assert.Equal(t, []uint64{1}, res.RegionCounts)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		g := twoColumns(t)

		_, err := watergo.Run(ctx, g, nil)
		assert.ErrorIs(t, err, watergo.ErrNoThresholds)

		_, err = watergo.Run(ctx, g, []float64{0.5, 0.1})
		assert.ErrorIs(t, err, watergo.ErrUnsortedThresholds)

		_, err = watergo.Run(ctx, g, []float64{0.5}, watergo.WithFragments([]uint64{1, 2}))
		assert.ErrorIs(t, err, watergo.ErrFragmentCount)

		_, err = watergo.Run(ctx, g, []float64{0.5}, watergo.WithScorePolicy(score.ByQuantile(1.5)))
		var ip *watergo.ErrInvalidPolicy
		assert.ErrorAs(t, err, &ip)
	})
}

func TestBuilder(t *testing.T) {
	ctx := context.Background()

	t.Run("EndToEnd", func(t *testing.T) {
		res, err := watergo.Volume(2, 2, 1).
			Weights([][]float32{
				{0.9, 0.9, 0, 0},
				{0.1, 0, 0.1, 0},
				{0, 0, 0, 0},
			}).
			Mean().
			Thresholds(0.05, 0.5).
			History().
			Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2}, res.RegionCounts)
		assert.Len(t, res.History, 1)
	})

	t.Run("Immutable", func(t *testing.T) {
		base := watergo.Volume(2, 2, 1).
			Weights([][]float32{
				{0.9, 0.9, 0, 0},
				{0.1, 0, 0.1, 0},
				{0, 0, 0, 0},
			}).
			Thresholds(0.05)

		constrained := base.MaxRegionSize(1)
		res, err := base.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, res.RegionCounts)

		res, err = constrained.Run(ctx)
		require.NoError(t, err)
		// MaxRegionSize(1) refuses every merge of the two 2-voxel fragments.
		assert.Equal(t, []uint64{2}, res.RegionCounts)
	})

	t.Run("DirectionAndQuantile", func(t *testing.T) {
		res, err := watergo.Volume(2, 2, 1).
			Weights([][]float32{
				{0.9, 0.9, 0, 0},
				{0.1, 0, 0.1, 0},
				{0, 0, 0, 0},
			}).
			Quantile(0.5).
			Direction(agglo.MergeLowestFirst).
			Thresholds(0.5).
			Run(ctx)
		require.NoError(t, err)
		// Lowest-first merges the 0.1 boundary at cutoff 0.5.
		assert.Equal(t, []uint64{1}, res.RegionCounts)
	})

	t.Run("InvalidVolume", func(t *testing.T) {
		_, err := watergo.Volume().Weights(nil).Thresholds(0.5).Run(ctx)
		var is *watergo.ErrInvalidShape
		assert.ErrorAs(t, err, &is)
	})
}
