// Package integration drives the full HTTP stack (router, middleware,
// handlers, store) in process. Tests that need Redis or PostgreSQL skip when
// those are unreachable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/loader"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

func TestMain(m *testing.M) {
	index.EnableConsistencyChecks(true)
	os.Exit(m.Run())
}

type stack struct {
	server *httptest.Server
	store  *store.Store
	agg    *analytics.Aggregator
}

func newStack(t *testing.T, queryCache *cache.QueryCache) *stack {
	t.Helper()
	cfg := config.Default()
	m := metrics.New(prometheus.NewRegistry())
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, nil, 0)
	collector.Start(context.Background())
	t.Cleanup(collector.Close)

	s := store.New(analytics.NewStoreObserver(m, collector))
	p := pipeline.New(s, extractor.New(cfg.Ingest.ExtractTimeout), m)

	checker := health.NewChecker()
	checker.Register("store", health.PingCheck(func(context.Context) error {
		if s.Poisoned() {
			return apperrors.ErrStorePoisoned
		}
		return nil
	}, false))

	h := router.New(router.Handlers{
		Documents: ingesthandler.New(p, s, cfg.Server.MaxUploadBytes),
		Search:    searchhandler.New(executor.New(s, cfg.Search), s, queryCache, collector, m, cfg.Search.DefaultSnippets),
		Analytics: analytics.NewHandler(agg),
		Health:    checker,
	}, router.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: 5 * time.Second,
		Metrics:        m,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &stack{server: srv, store: s, agg: agg}
}

func (st *stack) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, st.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp
}

func TestUploadSearchDeleteFlow(t *testing.T) {
	st := newStack(t, nil)

	var up ingestion.UploadResponse
	resp := st.do(t, http.MethodPost, "/api/upload", []ingestion.UploadItem{
		{Name: "a.txt", Content: "The cat sat. A dog ran."},
		{Name: "b.txt", Content: "cat cat bird"},
	}, &up)
	if resp.StatusCode != http.StatusOK || len(up.DocIDs) != 2 {
		t.Fatalf("upload = %d %+v", resp.StatusCode, up)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("CORS origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	var res executor.SearchResult
	st.do(t, http.MethodPost, "/api/search", map[string]any{"words": []string{"cat", "dog"}}, &res)
	if len(res.Results) != 2 || res.Results[0].TotalCount != 3 || res.Results[1].TotalCount != 1 {
		t.Fatalf("results = %+v", res.Results)
	}
	if got := res.Results[0].PerDoc; len(got) != 2 || got[0].Count != 1 || got[1].Count != 2 {
		t.Fatalf("cat per-doc = %+v", got)
	}
	if len(res.DocsWithAllWords) != 1 || res.DocsWithAllWords[0].DocName != "a.txt" {
		t.Fatalf("docs_with_all_words = %+v", res.DocsWithAllWords)
	}
	if res.Benchmark.Speedup < 0 || res.Benchmark.SequentialMs < 0 {
		t.Fatalf("benchmark = %+v", res.Benchmark)
	}

	var del ingesthandler.DeleteResponse
	st.do(t, http.MethodDelete, "/api/docs/"+strconv.FormatUint(uint64(up.DocIDs[0]), 10), nil, &del)
	if !del.Success || del.Remaining != 1 {
		t.Fatalf("delete = %+v", del)
	}
	st.do(t, http.MethodPost, "/api/search", map[string]any{"query": "dog"}, &res)
	if res.Results[0].TotalCount != 0 {
		t.Fatalf("dog after delete = %+v", res.Results)
	}

	var stats analytics.AggregatedStats
	st.do(t, http.MethodGet, "/api/analytics", nil, &stats)
	if stats.TotalSearches != 2 || stats.ZeroResultCount != 1 || stats.TotalDocsIndexed != 2 || stats.TotalDocsDeleted != 1 {
		t.Fatalf("analytics = %+v", stats)
	}
}

func TestHealthEndpoints(t *testing.T) {
	st := newStack(t, nil)
	if resp := st.do(t, http.MethodGet, "/health/live", nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("live = %d", resp.StatusCode)
	}
	var report health.Report
	if resp := st.do(t, http.MethodGet, "/health/ready", nil, &report); resp.StatusCode != http.StatusOK || report.Components["store"].Status != health.StatusUp {
		t.Fatalf("ready = %d %+v", resp.StatusCode, report)
	}
	if resp := st.do(t, http.MethodGet, "/api/analytics/history", nil, nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("history without postgres = %d", resp.StatusCode)
	}
}

func TestPreflight(t *testing.T) {
	st := newStack(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, st.server.URL+"/api/search", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight = %d", resp.StatusCode)
	}
}

func TestSearchWithRedisCache(t *testing.T) {
	client, err := redis.NewClient(config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		PoolSize: 2,
	})
	if err != nil {
		t.Skipf("skipping: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	qc := cache.New(client, time.Minute, redis.IsNilError)
	if err := qc.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := newStack(t, qc)
	st.do(t, http.MethodPost, "/api/upload", []ingestion.UploadItem{{Name: "a.txt", Content: "cat"}}, nil)

	var res executor.SearchResult
	for i := 0; i < 2; i++ {
		st.do(t, http.MethodPost, "/api/search", map[string]any{"query": "cat"}, &res)
		if res.Results[0].TotalCount != 1 {
			t.Fatalf("search %d = %+v", i, res.Results)
		}
	}
	if hits, _ := qc.Stats(); hits != 1 {
		t.Fatalf("cache hits = %d", hits)
	}
}

func TestPostgresSource(t *testing.T) {
	cfg := config.Default().Postgres
	cfg.Host = envOrDefault("TEST_POSTGRES_HOST", cfg.Host)
	cfg.Database = envOrDefault("TEST_POSTGRES_DB", cfg.Database)
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	table := "it_docs_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if _, err := db.DB.ExecContext(ctx, `CREATE TABLE `+table+` (id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL, content TEXT NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.DB.ExecContext(context.Background(), `DROP TABLE `+table) })
	if _, err := db.DB.ExecContext(ctx, `INSERT INTO `+table+` (name, content) VALUES ('a.txt', 'apple banana'), ('b.txt', 'banana')`); err != nil {
		t.Fatal(err)
	}

	s := store.New()
	p := pipeline.New(s, extractor.New(time.Second), nil)
	n, err := loader.LoadAll(ctx, p, loader.Postgres{DB: db.DB, Table: table, Retry: resilience.RetryConfig{MaxAttempts: 1}})
	if err != nil || n != 2 {
		t.Fatalf("LoadAll = %d, %v", n, err)
	}
	doc, err := s.Get(1)
	if err != nil || doc.Name != "b.txt" {
		t.Fatalf("Get(1) = %+v, %v", doc, err)
	}
}

func TestAnalyticsSnapshots(t *testing.T) {
	cfg := config.Default().Postgres
	cfg.Host = envOrDefault("TEST_POSTGRES_HOST", cfg.Host)
	cfg.Database = envOrDefault("TEST_POSTGRES_DB", cfg.Database)
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	table := "it_snapshots_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	history := snapshot.New(db.DB, table)
	if err := history.EnsureTable(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.DB.ExecContext(context.Background(), `DROP TABLE `+table) })

	if latest, err := history.Latest(ctx); err != nil || latest != nil {
		t.Fatalf("Latest on empty table = %+v, %v", latest, err)
	}

	agg := analytics.NewAggregator()
	agg.Record(analytics.SearchEvent{Query: "cat", Words: []string{"cat"}, TotalCount: 1, LatencyMs: 3, Speedup: 1})
	if err := history.Save(ctx, agg.Stats()); err != nil {
		t.Fatal(err)
	}
	agg.Record(analytics.SearchEvent{Query: "dog", Words: []string{"dog"}, TotalCount: 0, LatencyMs: 4, Speedup: 1})
	if err := history.Save(ctx, agg.Stats()); err != nil {
		t.Fatal(err)
	}

	latest, err := history.Latest(ctx)
	if err != nil || latest == nil || latest.Stats.TotalSearches != 2 {
		t.Fatalf("Latest = %+v, %v", latest, err)
	}

	rec := httptest.NewRecorder()
	snapshot.History(history)(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/history?limit=1", nil))
	var body struct {
		Snapshots []snapshot.Snapshot `json:"snapshots"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || len(body.Snapshots) != 1 || body.Snapshots[0].Stats.ZeroResultCount != 1 {
		t.Fatalf("history = %d %+v", rec.Code, body)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
