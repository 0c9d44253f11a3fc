// Package queue provides the small FIFO the chip model uses to stage
// response frames and firmware log chunks.
package queue

// FIFO is an unbounded first-in first-out queue. It is not safe for
// concurrent use.
type FIFO[T any] struct {
	items []T
}

// New returns a FIFO with room for prealloc items before it has to grow.
func New[T any](prealloc int) *FIFO[T] {
	return &FIFO[T]{items: make([]T, 0, prealloc)}
}

// Push appends an item to the tail.
func (q *FIFO[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Pop removes and returns the head item. ok is false on an empty queue.
func (q *FIFO[T]) Pop() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}

	item = q.items[0]
	var zero T
	q.items[0] = zero // drop the reference, the slice head moves past it
	q.items = q.items[1:]
	return item, true
}

// Peek returns the head item without removing it.
func (q *FIFO[T]) Peek() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	return q.items[0], true
}

// Reset drops all queued items, keeping the allocated space.
func (q *FIFO[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0]
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	return len(q.items)
}
