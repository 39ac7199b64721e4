package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fabriziopfannl/coalescer/internal/coalescer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func upperExecutor(items []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = strings.ToUpper(item.(string))
	}
	return out, nil
}

func newTestServer(t *testing.T, cfg coalescer.Config) (*Server, *coalescer.Coalescer) {
	t.Helper()
	c, err := coalescer.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return NewServer(c, upperExecutor, zap.NewNop()), c
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, coalescer.Config{MaxBatch: 1, Backpressure: coalescer.Block})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleSubmit(t *testing.T) {
	t.Run("returns the executor's result", func(t *testing.T) {
		s, _ := newTestServer(t, coalescer.Config{MaxBatch: 1, Backpressure: coalescer.Block})

		body, err := json.Marshal(submitRequest{Item: "hello"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp submitResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "HELLO", resp.Result)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		s, _ := newTestServer(t, coalescer.Config{MaxBatch: 1, Backpressure: coalescer.Block})

		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps a full queue to 429 under DROP backpressure", func(t *testing.T) {
		release := make(chan struct{})
		blocking := func(items []interface{}) ([]interface{}, error) {
			<-release
			return items, nil
		}
		c, err := coalescer.New(coalescer.Config{MaxBatch: 1, Backpressure: coalescer.Drop}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() {
			close(release)
			c.Close()
		})
		s := NewServer(c, blocking, zap.NewNop())

		// Occupy the worker, then fill the single queue slot behind it, so
		// the next submission sees a saturated queue.
		go func() { _, _ = c.Submit("busy", blocking) }()
		time.Sleep(20 * time.Millisecond)
		go func() { _, _ = c.Submit("queued", blocking) }()
		time.Sleep(20 * time.Millisecond)

		var code int
		for i := 0; i < 50; i++ {
			body, _ := json.Marshal(submitRequest{Item: "x"})
			req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			code = rec.Code
			if code == http.StatusTooManyRequests {
				break
			}
		}
		assert.Equal(t, http.StatusTooManyRequests, code)
	})
}

func TestHandleFlush(t *testing.T) {
	s, _ := newTestServer(t, coalescer.Config{MaxBatch: 100, Backpressure: coalescer.Block})

	req := httptest.NewRequest(http.MethodPost, "/flush", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleMetrics(t *testing.T) {
	s, _ := newTestServer(t, coalescer.Config{MaxBatch: 1, Backpressure: coalescer.Block})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coalescer_total_batches")
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{coalescer.QueueFullError{MaxBatch: 1}, http.StatusTooManyRequests},
		{coalescer.WorkerStoppedError{}, http.StatusServiceUnavailable},
		{coalescer.ExecutorError{Message: "boom"}, http.StatusBadGateway},
		{fmt.Errorf("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err))
	}
}
