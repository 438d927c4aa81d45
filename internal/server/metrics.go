// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler is the "handler" label value used to partition metrics by the
// logical endpoint name rather than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// uploadsTotal counts completed /api/upload requests, partitioned by
	// outcome: "ok", "rejected" (document-level failure), or "error".
	uploadsTotal *prometheus.CounterVec

	// uploadDurationSeconds records the wall-clock duration of each
	// /api/upload request from receipt to indexed.
	uploadDurationSeconds *prometheus.HistogramVec

	// uploadChunksTotal counts chunks indexed by successful uploads.
	uploadChunksTotal prometheus.Counter

	// tasksTotal counts completed /api/task requests, partitioned by
	// outcome: "ok", "rejected", or "error".
	tasksTotal *prometheus.CounterVec

	// taskDurationSeconds records the wall-clock duration of each /api/task
	// request including retrieval and model generation.
	taskDurationSeconds *prometheus.HistogramVec

	// retrievalChunks records the number of context chunks injected per
	// chat turn after budget trimming.
	retrievalChunks prometheus.Histogram

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docai",
			Subsystem: "upload",
			Name:      "requests_total",
			Help:      "Total number of /api/upload requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		uploadDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docai",
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/upload requests from receipt to indexed.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		uploadChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docai",
			Subsystem: "upload",
			Name:      "chunks_total",
			Help:      "Total number of chunks indexed by successful uploads.",
		}),

		tasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docai",
			Subsystem: "task",
			Name:      "requests_total",
			Help:      "Total number of /api/task requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		taskDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docai",
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/task requests including retrieval and generation.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),

		retrievalChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docai",
			Subsystem: "task",
			Name:      "retrieval_chunks",
			Help:      "Number of context chunks injected per chat turn after budget trimming.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docai",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observeUpload records one completed /api/upload request.
func (s *Server) observeUpload(outcome string, start time.Time) {
	s.metrics.uploadsTotal.WithLabelValues(outcome).Inc()
	s.metrics.uploadDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// observeTask records one completed /api/task request.
func (s *Server) observeTask(outcome string, start time.Time) {
	s.metrics.tasksTotal.WithLabelValues(outcome).Inc()
	s.metrics.taskDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// instrument wraps h to record per-request count and latency under the given
// logical handler name.
func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		h(rw, r)
		elapsed := time.Since(start)

		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(elapsed.Seconds())
	})
}
