// Package queue provides the score-ordered edge priority queue driving the
// greedy merge loop.
//
// Entries are value-based for cache locality and carry a revision stamp so
// that stale entries (edges rescored or removed since they were pushed) can
// be detected and discarded lazily on pop instead of being removed eagerly.
package queue

// Item is one queue entry for the region-graph edge (U, V), U < V.
type Item struct {
	U, V  uint64
	Score float64
	Rev   uint32
}

// EdgeQueue is a binary heap of edge entries. Ordering is total and
// deterministic: primary key is the score in the configured direction,
// ties are broken by ascending (U, V).
type EdgeQueue struct {
	popHighest bool
	items      []Item
}

// NewMax returns a queue popping the highest-scoring edge first.
func NewMax(capacity int) *EdgeQueue {
	return &EdgeQueue{popHighest: true, items: make([]Item, 0, capacity)}
}

// NewMin returns a queue popping the lowest-scoring edge first.
func NewMin(capacity int) *EdgeQueue {
	return &EdgeQueue{popHighest: false, items: make([]Item, 0, capacity)}
}

// Len returns the number of entries, including stale ones.
func (q *EdgeQueue) Len() int { return len(q.items) }

// Top returns the extremal entry without removing it.
func (q *EdgeQueue) Top() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push inserts an entry while maintaining the heap invariant.
func (q *EdgeQueue) Push(it Item) {
	q.items = append(q.items, it)
	q.siftUp(len(q.items) - 1)
}

// Pop removes and returns the extremal entry.
func (q *EdgeQueue) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	root := q.items[0]
	last := q.items[n-1]
	q.items[n-1] = Item{}
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root, true
}

// Reset clears the queue for reuse.
func (q *EdgeQueue) Reset() {
	q.items = q.items[:0]
}

func (q *EdgeQueue) less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.Score != b.Score {
		if q.popHighest {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	if a.U != b.U {
		return a.U < b.U
	}
	return a.V < b.V
}

func (q *EdgeQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *EdgeQueue) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
