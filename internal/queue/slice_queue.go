package queue

// sliceQueue implements the Queue interface using a slice.
//
// It is not goroutine-safe; the owner serializes all access.
type sliceQueue[T any] struct {
	items []T
}

var _ Queue[int] = (*sliceQueue[int])(nil)

// NewSliceQueue creates a new slice backed queue with room for prealloc items.
func NewSliceQueue[T any](prealloc int) Queue[T] {
	return &sliceQueue[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds an item to the tail of the queue.
func (q *sliceQueue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the item at the head of the queue.
func (q *sliceQueue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	// release the reference held by the backing array
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = q.items[:0:0]
	}

	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *sliceQueue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	return q.items[0], true
}

// Any reports whether pred matches any queued item.
func (q *sliceQueue[T]) Any(pred func(T) bool) bool {
	for _, item := range q.items {
		if pred(item) {
			return true
		}
	}

	return false
}

// Reset resets the queue to an empty state.
func (q *sliceQueue[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0] // Reslice to 0 length to reuse the underlying array
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *sliceQueue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// Length returns the number of items in the queue.
func (q *sliceQueue[T]) Length() int {
	return len(q.items)
}
