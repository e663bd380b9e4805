package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan) (*executor.SearchResult, error)
}

// GenerationSource reports the store generation used to key cached results.
type GenerationSource interface {
	Generation() uint64
}

// SearchRequest is the body of POST /api/search. Words takes precedence over
// Query; nil flags fall back to the configured defaults.
type SearchRequest struct {
	Words    []string `json:"words,omitempty"`
	Query    string   `json:"query,omitempty"`
	Snippets *bool    `json:"snippets,omitempty"`
	MatchAll *bool    `json:"match_all,omitempty"`
}

type Handler struct {
	executor        SearchExecutor
	generations     GenerationSource
	cache           *cache.QueryCache
	collector       *analytics.Collector
	metrics         *metrics.Metrics
	defaultSnippets bool
	logger          *slog.Logger
}

// New builds the search handler. queryCache, collector and m may be nil.
func New(exec SearchExecutor, generations GenerationSource, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultSnippets bool) *Handler {
	return &Handler{
		executor:        exec,
		generations:     generations,
		cache:           queryCache,
		collector:       collector,
		metrics:         m,
		defaultSnippets: defaultSnippets,
		logger:          slog.Default().With("component", "search-handler"),
	}
}

// Search serves POST /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	defer func() {
		span.End()
		span.Log(ctx)
	}()
	log := logger.FromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	plan, ok := h.planFor(req)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "either 'words' or 'query' is required")
		return
	}
	span.SetAttr("words", len(plan.Words))

	result, cacheHit, err := h.execute(ctx, plan)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", plan.RawQuery, "error", err)
		h.observe(plan, nil, false, time.Since(start), "error")
		h.writeError(w, statusCode, "search failed")
		return
	}

	latency := time.Since(start)
	total := totalCount(result)
	resultType := "hit"
	if total == 0 {
		resultType = "zero_result"
	}
	h.observe(plan, result, cacheHit, latency, resultType)
	span.SetAttr("cache_hit", cacheHit)
	span.SetAttr("total_count", total)

	log.Info("search completed",
		"query", plan.RawQuery,
		"words", len(plan.Words),
		"total_count", total,
		"docs_with_all_words", len(result.DocsWithAllWords),
		"speedup", result.Benchmark.Speedup,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.collector != nil {
		eventType := analytics.EventSearch
		switch {
		case total == 0:
			eventType = analytics.EventZeroResult
		case cacheHit:
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.SearchEvent{
			Type:             eventType,
			Query:            plan.RawQuery,
			Words:            resultWords(result),
			TotalCount:       total,
			DocsWithAllWords: len(result.DocsWithAllWords),
			LatencyMs:        latency.Milliseconds(),
			ParallelMs:       result.Benchmark.ParallelMs,
			SequentialMs:     result.Benchmark.SequentialMs,
			Speedup:          result.Benchmark.Speedup,
			CacheHit:         cacheHit,
			Timestamp:        time.Now().UTC(),
			RequestID:        middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) planFor(req SearchRequest) (*parser.QueryPlan, bool) {
	var plan *parser.QueryPlan
	switch {
	case req.Words != nil:
		plan = parser.FromWords(req.Words)
	case strings.TrimSpace(req.Query) != "":
		plan = parser.Parse(req.Query)
	default:
		return nil, false
	}
	plan.Snippets = h.defaultSnippets
	if req.Snippets != nil {
		plan.Snippets = *req.Snippets
	}
	if req.MatchAll != nil {
		plan.MatchAll = *req.MatchAll
	}
	return plan, true
}

func (h *Handler) execute(ctx context.Context, plan *parser.QueryPlan) (*executor.SearchResult, bool, error) {
	ctx, span := tracing.StartChildSpan(ctx, "execute")
	defer span.End()
	if h.cache == nil {
		result, err := h.executor.Execute(ctx, plan)
		return result, false, err
	}
	return h.cache.GetOrCompute(ctx, plan, h.generations.Generation(), func() (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, plan)
	})
}

func (h *Handler) observe(plan *parser.QueryPlan, result *executor.SearchResult, cacheHit bool, latency time.Duration, resultType string) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	if result == nil {
		return
	}
	cacheStatus := "none"
	if h.cache != nil {
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.SearchWordsCount.Observe(float64(len(plan.Words)))
	if !cacheHit {
		h.metrics.SearchSpeedup.Observe(result.Benchmark.Speedup)
	}
}

func totalCount(result *executor.SearchResult) int {
	total := 0
	for _, r := range result.Results {
		total += r.TotalCount
	}
	return total
}

func resultWords(result *executor.SearchResult) []string {
	words := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Word != "" {
			words = append(words, r.Word)
		}
	}
	return words
}

// CacheStats serves GET /api/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate serves POST /api/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
