package coalescer

import "sync/atomic"

// MetricsSnapshot is a non-blocking, per-field-consistent read of the
// coalescer's counters. It is not cross-field atomic: a snapshot taken
// concurrently with a flush may observe TotalBatches incremented but
// TotalItems not yet — acceptable for a dashboard, not for accounting.
type MetricsSnapshot struct {
	TotalBatches  uint64
	TotalItems    uint64
	FlushMaxBatch uint64
	FlushDeadline uint64
	FlushManual   uint64
}

// metrics holds the five monotonic counters described in spec.md §3 and
// §4.3. All fields are written with relaxed (plain atomic) ordering; only
// the worker writes TotalBatches/TotalItems/FlushMaxBatch/FlushDeadline,
// while FlushManual is written by Flush from any caller goroutine.
type metrics struct {
	totalBatches  atomic.Uint64
	totalItems    atomic.Uint64
	flushMaxBatch atomic.Uint64
	flushDeadline atomic.Uint64
	flushManual   atomic.Uint64
}

func (m *metrics) recordBatch(size int, hitMaxBatch bool) {
	m.totalBatches.Add(1)
	m.totalItems.Add(uint64(size))
	if hitMaxBatch {
		m.flushMaxBatch.Add(1)
	} else {
		m.flushDeadline.Add(1)
	}
}

func (m *metrics) recordManualFlush() {
	m.flushManual.Add(1)
}

func (m *metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalBatches:  m.totalBatches.Load(),
		TotalItems:    m.totalItems.Load(),
		FlushMaxBatch: m.flushMaxBatch.Load(),
		FlushDeadline: m.flushDeadline.Load(),
		FlushManual:   m.flushManual.Load(),
	}
}
