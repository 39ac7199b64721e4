package coalescer

import (
	"sync"
	"time"
)

// pendingQueue is a bounded FIFO of *Pending guarded by one mutex and one
// condition variable. The condvar serves three independent wake
// conditions — "queue became non-empty", "queue has free capacity", and
// "flush or stop requested" — exactly as described in spec.md §5. Every
// waiter re-checks its own predicate on wake; spurious wakes are
// harmless.
type pendingQueue struct {
	mu             sync.Mutex
	cond           *sync.Cond
	items          []*Pending
	maxBatch       int
	stopped        bool
	flushRequested bool
}

func newPendingQueue(maxBatch int) *pendingQueue {
	q := &pendingQueue{
		items:    make([]*Pending, 0, maxBatch),
		maxBatch: maxBatch,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// length returns the current queue length under lock. Exposed for submit's
// initial saturation check.
func (q *pendingQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// waitForCapacityThenEnqueue implements the BLOCK backpressure wait loop
// from spec.md §4.1 step 2: while length >= maxBatch, wait; on wake,
// re-check. When length < maxBatch, append to the tail and notify one
// waiter. Returns false (without enqueuing) if stop was observed instead.
func (q *pendingQueue) waitForCapacityThenEnqueue(p *Pending) bool {
	q.mu.Lock()
	for len(q.items) >= q.maxBatch && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, p)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// waitForNonEmptyLocked is Phase W: hold the lock, wait while the queue is empty
// and not stopping. Returns false if the worker should exit.
func (q *pendingQueue) waitForNonEmptyLocked() (proceed bool) {
	for len(q.items) == 0 && !q.stopped {
		q.cond.Wait()
	}
	return !q.stopped
}

// accumulateLocked is Phase A: called with the lock held and at least one
// item present. Waits for more items up to maxBatch or until the deadline
// derived from the head's enqueuedAt, whichever comes first. A manual
// flush or stop wakes it early and ends accumulation immediately,
// regardless of size or deadline.
func (q *pendingQueue) accumulateLocked(maxWait time.Duration) {
	if len(q.items) == 0 {
		return
	}
	deadline := q.items[0].enqueuedAt.Add(maxWait)
	for len(q.items) < q.maxBatch {
		if q.flushRequested || q.stopped {
			return
		}
		now := time.Now()
		if !now.Before(deadline) {
			return
		}
		timeout := deadline.Sub(now)
		q.condWait(timeout)
		if len(q.items) == 0 {
			// Defensive only: nothing else drains the queue concurrently
			// in this design, but the loop must not spin on an empty
			// slice if it somehow happened.
			return
		}
		if q.flushRequested || q.stopped {
			return
		}
	}
}

// requestFlush sets the flush flag and wakes any Phase A wait early. The
// flag is consumed (cleared) by the worker once it drains the batch this
// flush forced, via clearFlushLocked — so a flush raised while the worker
// is busy still forces exactly one early drain rather than being missed.
func (q *pendingQueue) requestFlush() {
	q.mu.Lock()
	q.flushRequested = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// clearFlushLocked resets the flush flag after a batch has been drained in
// response to it. Must be called with the lock held.
func (q *pendingQueue) clearFlushLocked() {
	q.flushRequested = false
}

// drainLocked moves up to maxBatch records from the head into a fresh
// slice. It does not wake any waiter; the worker broadcasts after calling
// it, which unblocks BLOCK submitters waiting for capacity. Must be called
// with the lock held; the lock is not released by this call.
func (q *pendingQueue) drainLocked() []*Pending {
	take := len(q.items)
	if take > q.maxBatch {
		take = q.maxBatch
	}
	batch := make([]*Pending, take)
	copy(batch, q.items[:take])
	remaining := len(q.items) - take
	copy(q.items, q.items[take:])
	q.items = q.items[:remaining]
	return batch
}

// stopAndDrainAll flips the stop flag, takes ownership of every item still
// enqueued, and returns them for abandonment by the caller (their sinks
// are closed outside the lock, matching the "never call a host callback
// under the lock" discipline in spec.md §5).
func (q *pendingQueue) stopAndDrainAll() []*Pending {
	q.mu.Lock()
	q.stopped = true
	abandoned := q.items
	q.items = nil
	q.mu.Unlock()
	q.cond.Broadcast()
	return abandoned
}

// condWait is a timed wait on the condvar. sync.Cond has no native timed
// wait, so a timer is armed to Broadcast after timeout; Wait returns
// either from that Broadcast or from any other Signal/Broadcast that
// happens first (waitForCapacityThenEnqueue, Flush, Close), and the timer is canceled
// either way. The caller always re-checks its own predicate after
// condWait returns, so this is correct regardless of which one fired.
func (q *pendingQueue) condWait(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	timer := time.AfterFunc(timeout, q.cond.Broadcast)
	defer timer.Stop()
	q.cond.Wait()
}
