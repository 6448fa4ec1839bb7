// Package queue provides the thread-safe FIFO buffering decoded frames
// between the decoder task's publish path and the control loop's drain step.
package queue

import (
	"sync"
	"time"
)

// Blocking is an unbounded thread-safe FIFO. Add never blocks; consumers
// choose between the non-blocking TryGet drain form and the timed Get
// variant.
type Blocking[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

// New creates an empty queue.
func New[T any]() *Blocking[T] {
	q := &Blocking[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add appends an item. It never blocks.
func (q *Blocking[T]) Add(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryGet returns the next item if one is queued, or immediately reports
// false. The control loop calls this repeatedly to fully drain per tick
// without ever blocking the tick.
func (q *Blocking[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pop()
}

// Get waits up to timeout for an item. It reports false if the timeout
// elapses with the queue still empty.
func (q *Blocking[T]) Get(timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, false
		}
		timer := time.AfterFunc(remaining, q.cond.Broadcast)
		q.cond.Wait()
		timer.Stop()
	}
	return q.pop()
}

// Len returns the number of queued items.
func (q *Blocking[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Blocking[T]) pop() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}
