package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeQueue(t *testing.T) {
	t.Run("MaxOrder", func(t *testing.T) {
		q := NewMax(4)
		q.Push(Item{U: 1, V: 2, Score: 0.3})
		q.Push(Item{U: 3, V: 4, Score: 0.9})
		q.Push(Item{U: 5, V: 6, Score: 0.6})

		var scores []float64
		for q.Len() > 0 {
			it, ok := q.Pop()
			require.True(t, ok)
			scores = append(scores, it.Score)
		}
		assert.Equal(t, []float64{0.9, 0.6, 0.3}, scores)
	})

	t.Run("MinOrder", func(t *testing.T) {
		q := NewMin(4)
		q.Push(Item{U: 1, V: 2, Score: 0.3})
		q.Push(Item{U: 3, V: 4, Score: 0.9})
		q.Push(Item{U: 5, V: 6, Score: 0.6})

		var scores []float64
		for q.Len() > 0 {
			it, _ := q.Pop()
			scores = append(scores, it.Score)
		}
		assert.Equal(t, []float64{0.3, 0.6, 0.9}, scores)
	})

	t.Run("TieBreak", func(t *testing.T) {
		// Equal scores pop in ascending (U, V) order regardless of
		// insertion order and direction.
		for _, newQueue := range []func(int) *EdgeQueue{NewMax, NewMin} {
			q := newQueue(4)
			q.Push(Item{U: 7, V: 9, Score: 0.5})
			q.Push(Item{U: 2, V: 3, Score: 0.5})
			q.Push(Item{U: 2, V: 1, Score: 0.5})
			q.Push(Item{U: 7, V: 8, Score: 0.5})

			var pairs [][2]uint64
			for q.Len() > 0 {
				it, _ := q.Pop()
				pairs = append(pairs, [2]uint64{it.U, it.V})
			}
			assert.Equal(t, [][2]uint64{{2, 1}, {2, 3}, {7, 8}, {7, 9}}, pairs)
		}
	})

	t.Run("TopAndReset", func(t *testing.T) {
		q := NewMax(2)
		_, ok := q.Top()
		assert.False(t, ok)

		q.Push(Item{U: 1, V: 2, Score: 0.4, Rev: 3})
		top, ok := q.Top()
		require.True(t, ok)
		assert.Equal(t, uint32(3), top.Rev)
		assert.Equal(t, 1, q.Len())

		q.Reset()
		assert.Equal(t, 0, q.Len())
	})
}
