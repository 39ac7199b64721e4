// Package httpadapter is a thin HTTP binding around one *coalescer.Coalescer
// — the kind of "host-language binding layer" spec.md §1 scopes out of the
// core. Grounded on internal/api/server.go (chi.Router held on a Server
// struct, routes registered in small per-concern methods) and
// internal/api/routes.go from the teacher repo.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fabriziopfannl/coalescer/internal/coalescer"
	"github.com/fabriziopfannl/coalescer/internal/promexport"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server is the HTTP adapter around a Coalescer, an Executor for the demo
// workload, and a Prometheus registry exporting its metrics.
type Server struct {
	router   chi.Router
	log      *zap.Logger
	batcher  *coalescer.Coalescer
	executor coalescer.Executor
	metrics  *promexport.Registry
}

// NewServer wires the chi router. executor is the batch function applied
// to every submission made through POST /submit.
func NewServer(batcher *coalescer.Coalescer, executor coalescer.Executor, log *zap.Logger) *Server {
	s := &Server{
		log:      log,
		batcher:  batcher,
		executor: executor,
		metrics:  promexport.NewRegistry(batcher),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/submit", s.handleSubmit)
	r.Post("/flush", s.handleFlush)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.Handler().ServeHTTP(w, r)
}

type submitRequest struct {
	Item interface{} `json:"item"`
}

type submitResponse struct {
	Result interface{} `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.batcher.Submit(req.Item, s.executor)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Result: result})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.batcher.Flush()
	w.WriteHeader(http.StatusAccepted)
}

func statusForError(err error) int {
	switch err.(type) {
	case coalescer.QueueFullError:
		return http.StatusTooManyRequests
	case coalescer.WorkerStoppedError:
		return http.StatusServiceUnavailable
	case coalescer.ExecutorError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
