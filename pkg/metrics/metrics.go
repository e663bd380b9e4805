// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchWordsCount     prometheus.Histogram
	SearchSpeedup        prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIngestedTotal    *prometheus.CounterVec
	DocsSkippedTotal     *prometheus.CounterVec
	DocsDeletedTotal     prometheus.Counter
	StoreDocuments       prometheus.Gauge
	StoreWords           prometheus.Gauge
	StorePoisoned        prometheus.Gauge
}

// New creates all collectors and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry so repeated calls do not collide.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchWordsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_words_count",
				Help:    "Number of words per search query.",
				Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
			},
		),
		SearchSpeedup: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_parallel_speedup_ratio",
				Help:    "Sequential over parallel elapsed time per search.",
				Buckets: []float64{0.25, 0.5, 0.75, 1, 1.5, 2, 3, 4, 8},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		DocsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_ingested_total",
				Help: "Total documents added to the store by ingestion source.",
			},
			[]string{"source"},
		),
		DocsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_skipped_total",
				Help: "Total documents skipped during ingestion by reason.",
			},
			[]string{"reason"},
		),
		DocsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_deleted_total",
				Help: "Total documents removed from the store.",
			},
		),
		StoreDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_documents",
				Help: "Number of documents currently in the store.",
			},
		),
		StoreWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_words",
				Help: "Number of tokens across all stored documents.",
			},
		),
		StorePoisoned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_poisoned",
				Help: "1 once a write has panicked and the store refuses requests.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchWordsCount,
		m.SearchSpeedup,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIngestedTotal,
		m.DocsSkippedTotal,
		m.DocsDeletedTotal,
		m.StoreDocuments,
		m.StoreWords,
		m.StorePoisoned,
	)

	return m
}

// Handler serves the collectors gathered by g in the Prometheus exposition
// format. Gathering errors are logged and the partial result is served.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().With("component", "metrics").Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
