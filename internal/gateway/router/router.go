// Package router mounts every HTTP endpoint of the service on one mux and
// applies the middleware chain (RequestID → CORS → Metrics → RateLimit → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics/snapshot"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/handler"
	searchhandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
)

type Handlers struct {
	Documents *ingesthandler.Handler
	Search    *searchhandler.Handler
	Analytics *analytics.Handler
	// History is nil when analytics snapshots are not configured.
	History   *snapshot.Store
	Health    *health.Checker
}

type Options struct {
	AllowedOrigins []string
	// RequestTimeout bounds each request; zero disables the timeout layer.
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	// RateLimiter throttles each client address; nil disables it.
	RateLimiter    *pkgmw.RateLimiter
}

// New builds the HTTP handler.
//
// Route table:
//
//	POST   /api/upload              → upload documents
//	GET    /api/docs                → list documents
//	GET    /api/docs/{id}           → get one document
//	DELETE /api/docs/{id}           → delete one document
//	DELETE /api/docs                → delete every document
//	GET    /api/stats               → corpus statistics
//	POST   /api/search              → word search
//	GET    /api/analytics           → aggregated search analytics
//	GET    /api/analytics/history   → saved analytics snapshots
//	GET    /api/cache/stats         → result cache counters
//	POST   /api/cache/invalidate    → drop cached results
//	GET    /health/live             → liveness
//	GET    /health/ready            → readiness
func New(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", h.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", h.Health.ReadyHandler())

	mux.HandleFunc("POST /api/upload", h.Documents.Upload)
	mux.HandleFunc("GET /api/docs", h.Documents.List)
	mux.HandleFunc("GET /api/docs/{id}", h.Documents.Get)
	mux.HandleFunc("DELETE /api/docs/{id}", h.Documents.Delete)
	mux.HandleFunc("DELETE /api/docs", h.Documents.DeleteAll)
	mux.HandleFunc("GET /api/stats", h.Documents.Stats)

	mux.HandleFunc("POST /api/search", h.Search.Search)
	mux.HandleFunc("GET /api/cache/stats", h.Search.CacheStats)
	mux.HandleFunc("POST /api/cache/invalidate", h.Search.CacheInvalidate)

	mux.HandleFunc("GET /api/analytics", h.Analytics.Stats)
	mux.HandleFunc("GET /api/analytics/history", snapshot.History(h.History))

	corsCfg := pkgmw.DefaultCORSConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}

	// applied inside-out
	var chain http.Handler = mux
	if opts.RequestTimeout > 0 {
		chain = pkgmw.Timeout(opts.RequestTimeout)(chain)
	}
	if opts.RateLimiter != nil {
		chain = pkgmw.RateLimit(opts.RateLimiter)(chain)
	}
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	chain = pkgmw.CORS(corsCfg)(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
