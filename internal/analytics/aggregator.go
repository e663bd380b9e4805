package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
)

const maxLatencySamples = 10000

// DefaultTopN is how many top words and zero-result queries Stats reports.
const DefaultTopN = 10

type AggregatedStats struct {
	TotalSearches     int64       `json:"total_searches"`
	TotalDocsIndexed  int64       `json:"total_docs_indexed"`
	TotalDocsDeleted  int64       `json:"total_docs_deleted"`
	CacheHits         int64       `json:"cache_hits"`
	CacheMisses       int64       `json:"cache_misses"`
	ZeroResultCount   int64       `json:"zero_result_count"`
	AvgLatencyMs      float64     `json:"avg_latency_ms"`
	P50LatencyMs      int64       `json:"p50_latency_ms"`
	P95LatencyMs      int64       `json:"p95_latency_ms"`
	P99LatencyMs      int64       `json:"p99_latency_ms"`
	AvgSpeedup        float64     `json:"avg_speedup"`
	TopWords          []WordCount `json:"top_words"`
	ZeroResultQueries []WordCount `json:"zero_result_queries"`
	QueriesPerMinute  float64     `json:"queries_per_minute"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Aggregator keeps running search and ingestion statistics in memory.
type Aggregator struct {
	mu                sync.Mutex
	totalSearches     int64
	totalDocsIndexed  int64
	totalDocsDeleted  int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	speedupSum        float64
	latencies         []int64
	nextLatency       int
	wordCounts        map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	now               func() time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		wordCounts:        make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes analytics messages read back from Kafka, so a
// separate process can aggregate what several instances publish.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		switch string(key) {
		case "search":
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.Record(event)
		case "document":
			event, err := kafka.DecodeJSON[DocumentEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode document event", "error", err)
				return nil
			}
			agg.Record(event)
		default:
			agg.logger.Warn("unknown analytics event", "key", string(key))
		}
		return nil
	}
}

// Record folds one SearchEvent or DocumentEvent into the running totals.
func (a *Aggregator) Record(event any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearch(e)
	case DocumentEvent:
		switch e.Type {
		case EventIndexDocument:
			a.totalDocsIndexed++
		case EventDeleteDocument:
			a.totalDocsDeleted++
		}
	}
}

func (a *Aggregator) recordSearch(e SearchEvent) {
	a.totalSearches++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.speedupSum += e.Speedup
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = e.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
	for _, w := range e.Words {
		a.wordCounts[w]++
	}
	if e.TotalCount == 0 {
		a.zeroResults++
		a.zeroResultQueries[e.Query]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTopN)
}

// StatsTop is Stats with the word and zero-result lists cut to n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		TotalDocsIndexed: a.totalDocsIndexed,
		TotalDocsDeleted: a.totalDocsDeleted,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		ZeroResultCount:  a.zeroResults,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if a.totalSearches > 0 {
		stats.AvgSpeedup = a.speedupSum / float64(a.totalSearches)
	}
	stats.TopWords = topN(a.wordCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken alphabetically.
func topN(counts map[string]int64, n int) []WordCount {
	result := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, WordCount{Word: word, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Word < result[j].Word
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
