package watershed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/testutil"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("TwoBasins", func(t *testing.T) {
		// A 2x2x1 volume: strong affinity along axis 0 inside each column,
		// weak affinity between the columns.
		g, err := affinity.New([]int{2, 2, 1}, [][]float32{
			{0.9, 0.9, 0, 0},
			{0.1, 0, 0.1, 0},
			{0, 0, 0, 0},
		})
		require.NoError(t, err)

		f, err := Run(ctx, g)
		require.NoError(t, err)

		assert.Equal(t, uint64(2), f.Count())
		assert.Equal(t, f.Labels[0], f.Labels[2])
		assert.Equal(t, f.Labels[1], f.Labels[3])
		assert.NotEqual(t, f.Labels[0], f.Labels[1])
	})

	t.Run("PlateauCollapses", func(t *testing.T) {
		// Constant affinities form one plateau: every edge attains every
		// voxel's maximum, so the whole grid is a single fragment.
		g, err := affinity.New([]int{2, 2}, testutil.ConstantAffinities([]int{2, 2}, 0.5))
		require.NoError(t, err)

		f, err := Run(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), f.Count())
	})

	t.Run("LowThreshold", func(t *testing.T) {
		g, err := affinity.New([]int{2}, [][]float32{{0.3, 0}})
		require.NoError(t, err)

		f, err := Run(ctx, g, func(o *Options) { o.LowThreshold = 0.5 })
		require.NoError(t, err)
		assert.Equal(t, uint64(2), f.Count())

		f, err = Run(ctx, g, func(o *Options) { o.LowThreshold = 0.2 })
		require.NoError(t, err)
		assert.Equal(t, uint64(1), f.Count())
	})

	t.Run("MinFragmentSize", func(t *testing.T) {
		// The low threshold strands voxel 2 as a singleton; the size pass
		// absorbs it into the adjacent fragment.
		g, err := affinity.New([]int{3}, [][]float32{{0.9, 0.2, 0}})
		require.NoError(t, err)

		f, err := Run(ctx, g, func(o *Options) { o.LowThreshold = 0.3 })
		require.NoError(t, err)
		require.Equal(t, uint64(2), f.Count())

		f, err = Run(ctx, g, func(o *Options) {
			o.LowThreshold = 0.3
			o.MinFragmentSize = 2
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), f.Count())
		assert.Equal(t, uint64(3), f.UF.Size(f.Labels[0]))
	})

	t.Run("WorkerCountInvariant", func(t *testing.T) {
		shape := []int{4, 5, 3}
		rng := testutil.NewRNG(42)
		weights := rng.UniformAffinities(shape)
		g, err := affinity.New(shape, weights)
		require.NoError(t, err)

		serial, err := Run(ctx, g)
		require.NoError(t, err)
		parallel, err := Run(ctx, g, func(o *Options) { o.Workers = 4 })
		require.NoError(t, err)

		assert.Equal(t, serial.Labels, parallel.Labels)
	})
}

func TestFromLabels(t *testing.T) {
	f := FromLabels([]uint64{9, 9, 4, 4, 9})

	assert.Equal(t, uint64(2), f.Count())
	// Each fragment is represented by its lowest voxel index.
	assert.Equal(t, []uint64{0, 0, 2, 2, 0}, f.Labels)
	assert.True(t, f.Set.Contains(0))
	assert.True(t, f.Set.Contains(2))
	assert.Equal(t, uint64(3), f.UF.Size(0))
	assert.Equal(t, uint64(2), f.UF.Size(2))
}
