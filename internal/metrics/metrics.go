// Package metrics provides Prometheus instrumentation for the trade engine.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImportsTotal counts market imports by kind (players, picks) and result.
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradecalc_imports_total",
		Help: "Market CSV imports by kind and result",
	}, []string{"kind", "result"})

	// ImportedRows records how many rows the last successful import kept.
	ImportedRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tradecalc_imported_rows",
		Help: "Rows kept by the most recent successful import",
	}, []string{"kind"})

	// ReportsComputed counts full league recomputations.
	ReportsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradecalc_reports_computed_total",
		Help: "Number of league reports computed",
	})

	// ReportLatency tracks how long a full recomputation takes.
	ReportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradecalc_report_latency_seconds",
		Help:    "League report computation latency in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// Suggestions counts balancing suggestions by the pass that found them.
	Suggestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradecalc_suggestions_total",
		Help: "Balancing suggestions by match kind",
	}, []string{"match"})

	// SnapshotFailures counts swallowed snapshot save failures.
	SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradecalc_snapshot_failures_total",
		Help: "Snapshot saves that failed and were ignored",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradecalc_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradecalc_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradecalc_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for the path label to avoid per-ID series.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
