package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Admin-auth metrics. Failure reasons are coarse on purpose: they feed
// dashboards, not responses.
var (
	AccessKeysIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adminauth_access_keys_issued_total",
		Help: "Access keys minted and dispatched by email.",
	})

	LoginSuccesses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adminauth_login_success_total",
		Help: "Successful admin logins.",
	})

	LoginFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adminauth_login_failures_total",
			Help: "Failed admin login attempts by reason.",
		},
		[]string{"reason"},
	)

	Lockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adminauth_lockouts_total",
		Help: "Fingerprints locked out after repeated failures.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		AccessKeysIssued, LoginSuccesses, LoginFailures, Lockouts,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses a request path to a bounded label value so abusive
// traffic cannot explode metric cardinality.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	switch {
	case path == "/" || path == "/healthz" || path == "/readyz" || path == "/metrics":
		return path
	case strings.HasPrefix(path, "/api/admin/"),
		strings.HasPrefix(path, "/api/"),
		strings.HasPrefix(path, "/admin/"):
		return path
	default:
		return "/other"
	}
}

// Instrument wraps a handler with RPS/latency/in-flight measurement.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
