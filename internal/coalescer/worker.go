package coalescer

import "go.uber.org/zap"

// run is the coalescer's single dedicated consumer goroutine. It loops
// through Phase W (wait-for-nonempty), Phase A (accumulate), Phase D
// (drain), Phase C (classify & count), and Phase X (execute) until Close
// observes stop. The queue lock is held only across phases W, A, and D —
// never across X, so the executor may run arbitrarily long without
// blocking submitters beyond ordinary capacity backpressure.
func (c *Coalescer) run() {
	defer close(c.done)

	for {
		c.queue.mu.Lock()
		if !c.queue.waitForNonEmptyLocked() {
			c.queue.mu.Unlock()
			return
		}

		c.queue.accumulateLocked(c.cfg.MaxWait)
		batch := c.queue.drainLocked()
		c.queue.clearFlushLocked()
		c.queue.cond.Broadcast()
		c.queue.mu.Unlock()

		if len(batch) == 0 {
			continue
		}

		hitMaxBatch := len(batch) >= c.cfg.MaxBatch
		c.metrics.recordBatch(len(batch), hitMaxBatch)
		c.log.Debug("dispatching batch",
			zap.Int("size", len(batch)),
			zap.Bool("hit_max_batch", hitMaxBatch),
		)

		c.dispatch(batch)
	}
}

// dispatch is Phase X: select the executor from the batch's first
// record, invoke it with the positional item list, and route each output
// (or a shared failure) back to its Pending's sink. Never called with the
// queue lock held.
func (c *Coalescer) dispatch(batch []*Pending) {
	items := make([]interface{}, len(batch))
	for i, p := range batch {
		items[i] = p.item
	}

	executor := batch[0].executor
	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.id
	}

	out, err := executor(items)
	if err != nil {
		c.log.Warn("executor failed", zap.Error(err), zap.Strings("pending_ids", ids))
		c.failBatch(batch, errExecutorf("%s", err.Error()))
		return
	}
	if len(out) != len(batch) {
		c.log.Warn("executor length mismatch",
			zap.Int("want", len(batch)), zap.Int("got", len(out)), zap.Strings("pending_ids", ids))
		c.failBatch(batch, errExecutorf("executor returned %d items for %d inputs", len(out), len(batch)))
		return
	}

	for i, p := range batch {
		p.deliverOK(out[i])
	}
}

// failBatch delivers the same error to every Pending in a failed batch.
func (c *Coalescer) failBatch(batch []*Pending, err error) {
	for _, p := range batch {
		p.deliverErr(err)
	}
}
