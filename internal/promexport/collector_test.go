package promexport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fabriziopfannl/coalescer/internal/coalescer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshotter lets the collector be tested without a live Coalescer.
type fakeSnapshotter struct {
	snap coalescer.MetricsSnapshot
}

func (f fakeSnapshotter) Metrics() coalescer.MetricsSnapshot {
	return f.snap
}

func TestCollector_Describe(t *testing.T) {
	// Arrange
	c := NewCollector(fakeSnapshotter{})
	ch := make(chan *prometheus.Desc, 8)

	// Act
	c.Describe(ch)
	close(ch)

	// Assert: exactly the five counters declared in NewCollector.
	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestCollector_Collect(t *testing.T) {
	// Arrange
	source := fakeSnapshotter{snap: coalescer.MetricsSnapshot{TotalBatches: 5, TotalItems: 20}}
	c := NewCollector(source)
	ch := make(chan prometheus.Metric, 8)

	// Act
	c.Collect(ch)
	close(ch)

	// Assert
	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestRegistry_Handler(t *testing.T) {
	// Arrange
	source := fakeSnapshotter{snap: coalescer.MetricsSnapshot{
		TotalBatches:  3,
		TotalItems:    10,
		FlushMaxBatch: 2,
		FlushDeadline: 1,
		FlushManual:   1,
	}}
	reg := NewRegistry(source)

	// Act
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "coalescer_total_batches 3")
	assert.Contains(t, body, "coalescer_total_items 10")
	assert.Contains(t, body, "coalescer_flush_max_batch_total 2")
	assert.Contains(t, body, "coalescer_flush_deadline_total 1")
	assert.Contains(t, body, "coalescer_flush_manual_total 1")
}

func TestRegistry_ReflectsLiveUpdates(t *testing.T) {
	// Arrange: the collector must re-read the snapshotter on every scrape,
	// never cache a value from construction time.
	source := &mutableSnapshotter{}
	reg := NewRegistry(source)

	scrape := func() string {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		reg.Handler().ServeHTTP(rec, req)
		return rec.Body.String()
	}

	// Act & Assert
	assert.Contains(t, scrape(), "coalescer_total_batches 0")

	source.snap.TotalBatches = 7
	assert.Contains(t, scrape(), "coalescer_total_batches 7")
}

type mutableSnapshotter struct {
	snap coalescer.MetricsSnapshot
}

func (m *mutableSnapshotter) Metrics() coalescer.MetricsSnapshot {
	return m.snap
}
