// Package ingestion defines the request/response types, raw document form
// and Kafka event schema shared by every path that feeds the document store.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

// Encoding says how UploadItem.Content is to be read.
type Encoding string

const (
	EncodingText      Encoding = "text"
	EncodingPDFBase64 Encoding = "pdf_base64"
)

// Kind selects the extractor for a RawDocument.
type Kind int

const (
	KindText Kind = iota
	KindPDF
)

// Skip reasons reported to clients and used as metric labels.
const (
	ReasonExtractionFailed = "extraction_failed"
	ReasonEmptyContent     = "empty_content"
)

// UploadItem is one entry of the JSON array accepted by POST /api/upload.
// An empty Encoding means text.
type UploadItem struct {
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Encoding Encoding `json:"encoding,omitempty"`
}

// UploadResponse reports the documents that made it into the store.
// TotalFiles is the store size after the upload.
type UploadResponse struct {
	TotalFiles int           `json:"total_files"`
	DocIDs     []index.DocID `json:"doc_ids"`
	Skipped    []Skipped     `json:"skipped"`
}

// Skipped names a document that was dropped and why.
type Skipped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RawDocument is a document before text extraction.
type RawDocument struct {
	Name string
	Data []byte
	Kind Kind
}

// IngestEvent is the Kafka message payload consumed from the document
// ingest topic. It carries the same fields as an upload item.
type IngestEvent struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	Encoding   Encoding  `json:"encoding,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// UploadItem returns the event as an upload item.
func (e IngestEvent) UploadItem() UploadItem {
	return UploadItem{Name: e.Name, Content: e.Content, Encoding: e.Encoding}
}
