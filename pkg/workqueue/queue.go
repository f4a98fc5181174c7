// Package workqueue provides a bounded-only-by-policy FIFO queue used
// by the load generator, the proxy acceptor, the segment pool's free
// list, and the access journal's writer to hand work from producers to
// consumers.
package workqueue

import (
	"container/list"
	"sync"
	"time"
)

// pollInterval bounds how long Pop waits on its condition variable
// before re-checking state. It is not load-bearing for correctness —
// Submit and Close both broadcast — it only exists to let a worker
// periodically observe outside state (e.g. a shutdown flag) while
// otherwise blocked.
const pollInterval = time.Second

// Queue is a thread-safe, strictly-FIFO queue of T with a blocking Pop
// and a terminal "closed" state. Once closed and drained, Pop reports
// ok == false instead of blocking forever.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *list.List
	closed bool
}

// New creates an empty, open queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit enqueues an item. It never blocks and always succeeds; memory
// growth is bounded only by caller policy (e.g. TCP backpressure on the
// acceptor, or the load generator's fixed known request count).
func (q *Queue[T]) Submit(item T) {
	q.mu.Lock()
	q.items.PushBack(item)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Pop blocks until an item is available, the queue is closed and
// drained, or the poll interval elapses (in which case it loops and
// waits again). ok is false only once Close has been called and no
// items remain — that is the terminal "drained" signal.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if front := q.items.Front(); front != nil {
			q.items.Remove(front)
			return front.Value.(T), true
		}
		if q.closed {
			var zero T
			return zero, false
		}
		q.waitWithTimeout()
	}
}

// waitWithTimeout releases the lock, waits for a broadcast or the poll
// interval, and re-acquires the lock before returning. sync.Cond has no
// native timed wait, so a timer goroutine supplies the periodic nudge.
func (q *Queue[T]) waitWithTimeout() {
	timer := time.AfterFunc(pollInterval, func() {
		q.cond.Broadcast()
	})
	q.cond.Wait()
	timer.Stop()
}

// Close signals that no further items will be submitted. Once the
// queue drains, Pop returns ok == false instead of blocking. Close is
// idempotent. The load generator closes its shared queue once its
// fixed request count has been enqueued; the proxy's acceptor queue
// and the journal's queue are closed only at shutdown.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len reports the current number of queued (not yet popped) items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Snapshot returns a copy of the items currently queued, front to
// back, without removing them. It exists for diagnostic reporting
// (e.g. the admin surface's segment-status endpoint) and is not part
// of the producer/consumer protocol itself.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(T))
	}
	return out
}
