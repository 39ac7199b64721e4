// Package promexport exports a coalescer's MetricsSnapshot as Prometheus
// counters, grounded on the teacher's internal/gateway/metrics/collector.go
// (promauto-registered vecs behind a small Collector type) and
// internal/api/metrics.go (a private prometheus.Registry plus a promhttp
// handler, used instead of the global default registry so multiple
// coalescers in one process don't collide on registration).
package promexport

import (
	"net/http"

	"github.com/fabriziopfannl/coalescer/internal/coalescer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshotter is satisfied by *coalescer.Coalescer.
type Snapshotter interface {
	Metrics() coalescer.MetricsSnapshot
}

// Collector is a prometheus.Collector that reads a Snapshotter on every
// scrape — it never caches, so it can't go stale between scrapes, matching
// spec.md §4.3's "snapshot is non-blocking, per-field-consistent" contract.
type Collector struct {
	source Snapshotter

	totalBatches  *prometheus.Desc
	totalItems    *prometheus.Desc
	flushMaxBatch *prometheus.Desc
	flushDeadline *prometheus.Desc
	flushManual   *prometheus.Desc
}

// NewCollector builds a Collector reading from source. Call
// prometheus.Registry.MustRegister (or NewRegistry) with it, not the
// global prometheus.DefaultRegisterer, so more than one coalescer can be
// exported from the same process.
func NewCollector(source Snapshotter) *Collector {
	return &Collector{
		source: source,
		totalBatches: prometheus.NewDesc(
			"coalescer_total_batches", "Total number of batches dispatched.", nil, nil),
		totalItems: prometheus.NewDesc(
			"coalescer_total_items", "Total number of items dispatched via the worker path.", nil, nil),
		flushMaxBatch: prometheus.NewDesc(
			"coalescer_flush_max_batch_total", "Batches flushed because they reached max_batch.", nil, nil),
		flushDeadline: prometheus.NewDesc(
			"coalescer_flush_deadline_total", "Batches flushed because their deadline elapsed.", nil, nil),
		flushManual: prometheus.NewDesc(
			"coalescer_flush_manual_total", "Number of times Flush was called.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalBatches
	ch <- c.totalItems
	ch <- c.flushMaxBatch
	ch <- c.flushDeadline
	ch <- c.flushManual
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Metrics()
	ch <- prometheus.MustNewConstMetric(c.totalBatches, prometheus.CounterValue, float64(snap.TotalBatches))
	ch <- prometheus.MustNewConstMetric(c.totalItems, prometheus.CounterValue, float64(snap.TotalItems))
	ch <- prometheus.MustNewConstMetric(c.flushMaxBatch, prometheus.CounterValue, float64(snap.FlushMaxBatch))
	ch <- prometheus.MustNewConstMetric(c.flushDeadline, prometheus.CounterValue, float64(snap.FlushDeadline))
	ch <- prometheus.MustNewConstMetric(c.flushManual, prometheus.CounterValue, float64(snap.FlushManual))
}

// Registry wraps a private prometheus.Registry with a Collector already
// registered, and serves it over HTTP.
type Registry struct {
	reg *prometheus.Registry
}

// NewRegistry creates a Registry exporting source's metrics.
func NewRegistry(source Snapshotter) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return &Registry{reg: reg}
}

// Handler returns the Prometheus scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
