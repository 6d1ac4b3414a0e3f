package sequencer

import "sync"

// Queue is an unbounded FIFO safe for many producers and one consumer.
// Put never blocks; the consumer either polls with TryGet or waits on Ready.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Put appends v and wakes a waiting consumer.
func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryGet pops the oldest item. ok is false when the queue is empty.
func (q *Queue[T]) TryGet() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Ready receives a value after at least one Put since the last receive.
// A receive does not guarantee an item: always follow it with TryGet.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
