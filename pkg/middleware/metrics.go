// Package middleware holds the HTTP layers wrapped around the API mux:
// request ids, CORS, Prometheus metrics and per-request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Metrics records request count, latency and in-flight requests. The path
// label is reduced to a known route so ids and junk URLs cannot grow the
// label set.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

var knownRoutes = map[string]bool{
	"/api/upload":            true,
	"/api/docs":              true,
	"/api/stats":             true,
	"/api/search":            true,
	"/api/analytics":         true,
	"/api/analytics/history": true,
	"/api/cache/stats":       true,
	"/api/cache/invalidate":  true,
	"/health/live":           true,
	"/health/ready":          true,
}

func normalizePath(path string) string {
	const docsPrefix = "/api/docs/"
	if rest, ok := strings.CutPrefix(path, docsPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return docsPrefix + "{id}"
	}
	if knownRoutes[path] {
		return path
	}
	return "other"
}
