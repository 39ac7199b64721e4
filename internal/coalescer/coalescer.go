// Package coalescer implements a dynamic request batcher: callers submit
// individual items and block until a result is returned, while a single
// background worker groups pending items into size- or time-bounded
// batches and invokes a caller-supplied executor exactly once per batch.
package coalescer

import (
	"go.uber.org/zap"
)

// Coalescer is the coalescing scheduler. Construct with New; every
// Coalescer owns exactly one background worker goroutine, started at
// construction and stopped by Close.
type Coalescer struct {
	cfg     Config
	queue   *pendingQueue
	metrics metrics
	log     *zap.Logger
	done    chan struct{}
}

// New constructs a Coalescer and spawns its worker goroutine. An unknown
// backpressure policy, a non-positive MaxBatch, or a negative MaxWait
// returns InvalidConfigError and no Coalescer.
func New(cfg Config, log *zap.Logger) (*Coalescer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Coalescer{
		cfg:   cfg,
		queue: newPendingQueue(cfg.MaxBatch),
		log:   log,
		done:  make(chan struct{}),
	}

	log.Info("coalescer started",
		zap.Int("max_batch", cfg.MaxBatch),
		zap.Duration("max_wait", cfg.MaxWait),
		zap.String("backpressure", cfg.Backpressure.String()),
	)

	go c.run()

	return c, nil
}

// Submit enqueues item for batching with executor and blocks until the
// executor's positional output for this item is available, or a failure
// is determined. See spec.md §4.1 for the full backpressure contract.
func (c *Coalescer) Submit(item interface{}, executor Executor) (interface{}, error) {
	if c.cfg.Backpressure != Block && c.queue.length() >= c.cfg.MaxBatch {
		switch c.cfg.Backpressure {
		case Drop:
			return nil, errQueueFull(c.cfg.MaxBatch)
		case Passthrough:
			throttled := !c.cfg.Limiter.allow()
			if throttled {
				c.log.Debug("passthrough call throttled, executing anyway")
			}
			return c.callExecutorDirect(item, executor)
		}
	}

	p := newPending(item, executor)

	if !c.queue.waitForCapacityThenEnqueue(p) {
		return nil, errWorkerStopped()
	}

	r, ok := <-p.sink
	if !ok {
		return nil, errWorkerStopped()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.value, nil
}

// callExecutorDirect implements the PASSTHROUGH path: invoke the executor
// synchronously with a singleton list, bypassing the queue and the worker
// entirely. Not counted in batching metrics.
func (c *Coalescer) callExecutorDirect(item interface{}, executor Executor) (interface{}, error) {
	out, err := executor([]interface{}{item})
	if err != nil {
		return nil, errExecutorf("%s", err.Error())
	}
	if len(out) != 1 {
		return nil, errExecutor("executor must return one item in passthrough mode")
	}
	return out[0], nil
}

// Flush is a hint: it increments FlushManual and wakes the worker out of
// Phase A even if its deadline hasn't elapsed, so it proceeds to drain
// whatever is currently present. It does not wake an empty queue's Phase W
// and does not affect batch classification. Returns immediately.
func (c *Coalescer) Flush() {
	c.metrics.recordManualFlush()
	c.queue.requestFlush()
}

// Metrics returns a non-blocking snapshot of the five counters.
func (c *Coalescer) Metrics() MetricsSnapshot {
	return c.metrics.snapshot()
}

// Close stops the worker at its next Phase W boundary. Pending records
// still enqueued are abandoned: their sinks are closed without a value,
// and their Submit calls return WorkerStoppedError. Idempotent by effect.
func (c *Coalescer) Close() {
	abandoned := c.queue.stopAndDrainAll()
	for _, p := range abandoned {
		close(p.sink)
	}
	<-c.done
	c.log.Info("coalescer stopped")
}
