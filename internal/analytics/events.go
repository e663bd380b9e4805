package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventCacheHit       EventType = "cache_hit"
	EventZeroResult     EventType = "zero_result"
	EventIndexDocument  EventType = "index_document"
	EventDeleteDocument EventType = "delete_document"
)

// SearchEvent describes one answered search request.
type SearchEvent struct {
	Type             EventType `json:"type"`
	Query            string    `json:"query"`
	Words            []string  `json:"words"`
	TotalCount       int       `json:"total_count"`
	DocsWithAllWords int       `json:"docs_with_all_words"`
	LatencyMs        int64     `json:"latency_ms"`
	ParallelMs       float64   `json:"parallel_ms"`
	SequentialMs     float64   `json:"sequential_ms"`
	Speedup          float64   `json:"speedup"`
	CacheHit         bool      `json:"cache_hit"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
}

// DocumentEvent describes a document entering or leaving the store.
type DocumentEvent struct {
	Type       EventType `json:"type"`
	DocumentID uint64    `json:"document_id"`
	Name       string    `json:"name"`
	TokenCount int       `json:"token_count"`
	SizeBytes  int       `json:"size_bytes"`
	Timestamp  time.Time `json:"timestamp"`
}
