package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

var errMiss = errors.New("miss")

type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (b *mapBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return "", errMiss
	}
	return v, nil
}

func (b *mapBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = string(value.([]byte))
	return nil
}

func (b *mapBackend) FlushByPattern(context.Context, string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := int64(len(b.data))
	b.data = make(map[string]string)
	return n, nil
}

type fixture struct {
	handler *Handler
	store   *store.Store
	metrics *metrics.Metrics
	agg     *analytics.Aggregator
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	s := store.New()
	_, _, err := s.IngestBatch(context.Background(), []store.Item{
		{Name: "a.txt", Content: "apple banana. The cat sat."},
		{Name: "b.txt", Content: "banana cherry"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	agg := analytics.NewAggregator()
	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&mapBackend{data: make(map[string]string)}, time.Minute, func(err error) bool { return errors.Is(err, errMiss) })
	}
	h := New(executor.New(s, config.Default().Search), s, qc, analytics.NewCollector(agg, nil, 0), m, true)
	return &fixture{handler: h, store: s, metrics: m, agg: agg}
}

func (f *fixture) search(t *testing.T, body string) (int, executor.SearchResult) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.Search(rec, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body)))
	var res executor.SearchResult
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rec.Code, res
}

func TestSearchByWords(t *testing.T) {
	f := newFixture(t, false)
	code, res := f.search(t, `{"words":["banana"," CAT ",""]}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(res.Results) != 2 || res.Results[0].Word != "banana" || res.Results[0].TotalCount != 2 {
		t.Fatalf("results = %+v", res.Results)
	}
	if res.Results[1].Word != "cat" || len(res.Results[1].PerDoc[0].Snippets) != 1 {
		t.Fatalf("cat result = %+v", res.Results[1])
	}
	if len(res.DocsWithAllWords) != 1 || res.DocsWithAllWords[0].DocName != "a.txt" || res.DocsWithAllWords[0].MatchedWords != 2 {
		t.Fatalf("docs_with_all_words = %+v", res.DocsWithAllWords)
	}
	if got := testutil.ToFloat64(f.metrics.SearchQueriesTotal.WithLabelValues("hit")); got != 1 {
		t.Fatalf("search_queries_total{hit} = %v", got)
	}
	if st := f.agg.Stats(); st.TotalSearches != 1 || st.TopWords[0].Word != "banana" {
		t.Fatalf("analytics = %+v", st)
	}
}

func TestSearchByQueryWithFlags(t *testing.T) {
	f := newFixture(t, false)
	code, res := f.search(t, `{"query":"apple  cherry","snippets":false,"match_all":true}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %+v", res.Results)
	}
	for _, r := range res.Results {
		for _, pd := range r.PerDoc {
			if len(pd.Snippets) != 0 {
				t.Fatalf("snippets present with snippets=false: %+v", pd)
			}
		}
	}
	if len(res.DocsWithAllWords) != 0 {
		t.Fatalf("docs_with_all_words = %+v", res.DocsWithAllWords)
	}
}

func TestSearchZeroResult(t *testing.T) {
	f := newFixture(t, false)
	_, res := f.search(t, `{"query":"zebra"}`)
	if len(res.Results) != 1 || res.Results[0].TotalCount != 0 || len(res.Results[0].PerDoc) != 0 {
		t.Fatalf("results = %+v", res.Results)
	}
	if got := testutil.ToFloat64(f.metrics.SearchQueriesTotal.WithLabelValues("zero_result")); got != 1 {
		t.Fatalf("search_queries_total{zero_result} = %v", got)
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	f := newFixture(t, false)
	for _, body := range []string{"nope", `{}`, `{"query":"   "}`} {
		if code, _ := f.search(t, body); code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, code)
		}
	}
}

func TestSearchBlankWordsIsEmptyResult(t *testing.T) {
	f := newFixture(t, false)
	for _, body := range []string{`{"words":[]}`, `{"words":["", "  ", "\t"]}`} {
		code, res := f.search(t, body)
		if code != http.StatusOK {
			t.Fatalf("body %q: status = %d", body, code)
		}
		if len(res.Results) != 0 || len(res.DocsWithAllWords) != 0 {
			t.Fatalf("body %q: results = %+v", body, res)
		}
	}
}

func TestSearchUsesCacheUntilStoreChanges(t *testing.T) {
	f := newFixture(t, true)
	f.search(t, `{"query":"banana"}`)
	_, res := f.search(t, `{"query":"banana"}`)
	if res.Results[0].TotalCount != 2 {
		t.Fatalf("cached result = %+v", res.Results)
	}
	if got := testutil.ToFloat64(f.metrics.CacheHitsTotal); got != 1 {
		t.Fatalf("cache_hits_total = %v", got)
	}

	if _, err := f.store.Ingest("c.txt", "banana"); err != nil {
		t.Fatal(err)
	}
	_, res = f.search(t, `{"query":"banana"}`)
	if res.Results[0].TotalCount != 3 {
		t.Fatalf("stale cache served: %+v", res.Results)
	}
	if got := testutil.ToFloat64(f.metrics.CacheMissesTotal); got != 2 {
		t.Fatalf("cache_misses_total = %v", got)
	}
}

func TestCacheEndpoints(t *testing.T) {
	disabled := newFixture(t, false)
	rec := httptest.NewRecorder()
	disabled.handler.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("invalidate without cache = %d", rec.Code)
	}

	f := newFixture(t, true)
	f.search(t, `{"query":"banana"}`)
	rec = httptest.NewRecorder()
	f.handler.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
	var stats map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats["misses"].(float64) < 1 {
		t.Fatalf("stats = %v", stats)
	}
	rec = httptest.NewRecorder()
	f.handler.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate = %d", rec.Code)
	}
}
