package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pullrunner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pullrunner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pullrunner",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Backend transport metrics
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pullrunner",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the Remote Pull Runner API",
		},
		[]string{"method", "endpoint", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pullrunner",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests sent to the Remote Pull Runner API",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Dashboard metrics
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pullrunner",
			Subsystem: "dashboard",
			Name:      "sessions_active",
			Help:      "Number of live browser sessions",
		},
	)

	checkTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pullrunner",
			Subsystem: "dashboard",
			Name:      "check_triggers_total",
			Help:      "Check sweeps triggered from the dashboard",
		},
		[]string{"kind", "result"},
	)

	notificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pullrunner",
			Subsystem: "dashboard",
			Name:      "notifications_total",
			Help:      "Notifications shown to dashboard users",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// BackendObserver records every Remote Pull Runner API call. It satisfies
// the client's Observer interface.
type BackendObserver struct{}

// ObserveRequest records one backend call
func (BackendObserver) ObserveRequest(method, path string, status int, elapsed time.Duration, err error) {
	code := strconv.Itoa(status)
	if status == 0 {
		code = "error"
	}
	endpoint := Endpoint(path)
	backendRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	backendRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// Endpoint reduces a backend path to its first two segments so record
// identities do not become label values.
func Endpoint(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}

// SetActiveSessions sets the gauge for live sessions
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordCheckTrigger records a check sweep triggered by a user
func RecordCheckTrigger(kind string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	checkTriggersTotal.WithLabelValues(kind, result).Inc()
}

// RecordNotification counts a notification shown to a user
func RecordNotification() {
	notificationsTotal.Inc()
}
