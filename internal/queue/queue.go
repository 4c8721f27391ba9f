package queue

// Reorder buffers results that complete out of order and releases them in
// sequence-number order. It is a min-heap keyed by Seq.
//
// Not safe for concurrent use.
type Reorder[T any] struct {
	next  uint64
	items []entry[T]
}

type entry[T any] struct {
	seq   uint64
	value T
}

// NewReorder creates a buffer whose first released sequence number is start.
func NewReorder[T any](start uint64, capacity int) *Reorder[T] {
	return &Reorder[T]{next: start, items: make([]entry[T], 0, capacity)}
}

// Push adds the result for seq.
func (q *Reorder[T]) Push(seq uint64, value T) {
	q.items = append(q.items, entry[T]{seq: seq, value: value})
	q.siftUp(len(q.items) - 1)
}

// Pop returns the next in-order result if it has arrived.
func (q *Reorder[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 || q.items[0].seq != q.next {
		return zero, false
	}
	top := q.items[0]
	n := len(q.items) - 1
	q.items[0] = q.items[n]
	q.items[n] = entry[T]{}
	q.items = q.items[:n]
	if n > 0 {
		q.siftDown(0)
	}
	q.next++
	return top.value, true
}

// Next returns the sequence number the buffer is waiting for.
func (q *Reorder[T]) Next() uint64 { return q.next }

// Len returns the number of buffered results.
func (q *Reorder[T]) Len() int { return len(q.items) }

func (q *Reorder[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if q.items[i].seq >= q.items[p].seq {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Reorder[T]) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.items[r].seq < q.items[l].seq {
			best = r
		}
		if q.items[best].seq >= q.items[i].seq {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
