// Package queue provides the bounded hand-off queues connecting pipeline
// stages.
package queue

import (
	"context"
	"fmt"
	"sync"
)

// Queue is a bounded in-memory queue with context-aware operations.
// Closing the queue is the shutdown signal: consumers drain remaining
// items and then observe closure, so no sentinel values ever share the
// channel with real payloads.
type Queue[T any] struct {
	ch      chan T
	closeMu sync.Mutex
	closed  bool
}

// New constructs a queue with the provided capacity. Put blocks once the
// queue holds capacity items, which is what gives the pipeline real
// backpressure.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		ch: make(chan T, capacity),
	}
}

// Put pushes an item into the queue, blocking while full, or returns if
// the context ends. Put on a closed queue panics; the single producer per
// queue owns Close, so this never happens in a correct pipeline.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue put canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Get pops the next item, respecting context cancellation. ok is false
// once the queue is closed and fully drained.
func (q *Queue[T]) Get(ctx context.Context) (item T, ok bool, err error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, false, fmt.Errorf("queue get canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		return item, ok, nil
	}
}

// Close signals consumers that no further items will arrive. Safe to call
// more than once.
func (q *Queue[T]) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
