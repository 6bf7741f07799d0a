// Package queue provides the FIFO containers used to hold pending device commands.
package queue

// Queue defines the interface for a FIFO queue of T.
type Queue[T any] interface {
	// Enqueue adds an item to the tail of the queue.
	Enqueue(item T)
	// Dequeue removes and returns the item at the head of the queue.
	// The boolean is false if the queue is empty.
	Dequeue() (T, bool)
	// Peek returns the item at the head of the queue without removing it.
	// The boolean is false if the queue is empty.
	Peek() (T, bool)
	// Any reports whether pred returns true for any queued item, head first.
	Any(pred func(T) bool) bool
	// Reset to an empty queue
	Reset()
	// IsEmpty returns true if the queue is empty, false otherwise.
	IsEmpty() bool
	// Length returns the number of items in the queue.
	Length() int
}
