// Package pipeline turns raw documents into store entries: extraction runs
// per document and in parallel, failures are isolated to the document that
// caused them, and the survivors are ingested as one batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Result is the outcome of one Ingest call.
type Result struct {
	IDs     []index.DocID
	Total   int
	Skipped []ingestion.Skipped
}

// Pipeline feeds extracted documents into a store.
type Pipeline struct {
	store     *store.Store
	extractor *extractor.Extractor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New returns a Pipeline. m may be nil.
func New(s *store.Store, ex *extractor.Extractor, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:     s,
		extractor: ex,
		metrics:   m,
		logger:    slog.Default().With("component", "ingest-pipeline"),
	}
}

// Ingest extracts every document and adds the ones with text to the store
// in input order. source labels metrics and logs ("upload", "dataset", ...).
// Only a store failure is returned as an error; per-document problems end
// up in Result.Skipped.
func (p *Pipeline) Ingest(ctx context.Context, source string, docs []ingestion.RawDocument) (Result, error) {
	texts := make([]string, len(docs))
	errs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		g.Go(func() error {
			texts[i], errs[i] = p.extract(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		IDs:     make([]index.DocID, 0, len(docs)),
		Skipped: make([]ingestion.Skipped, 0),
	}
	items := make([]store.Item, 0, len(docs))
	for i, doc := range docs {
		if errs[i] != nil {
			p.skip(&result, source, doc.Name, errs[i])
			continue
		}
		items = append(items, store.Item{Name: doc.Name, Content: texts[i]})
	}
	return p.commit(ctx, source, items, result)
}

// IngestUploads decodes upload items and ingests them. Items whose payload
// cannot be decoded are skipped like extraction failures.
func (p *Pipeline) IngestUploads(ctx context.Context, source string, items []ingestion.UploadItem) (Result, error) {
	docs := make([]ingestion.RawDocument, 0, len(items))
	undecodable := make([]ingestion.Skipped, 0)
	for _, it := range items {
		doc, err := Decode(it)
		if err != nil {
			p.logger.Warn("skipping undecodable document", "source", source, "name", it.Name, "error", err)
			undecodable = append(undecodable, ingestion.Skipped{Name: it.Name, Reason: ingestion.ReasonExtractionFailed})
			p.countSkip(ingestion.ReasonExtractionFailed)
			continue
		}
		docs = append(docs, doc)
	}
	result, err := p.Ingest(ctx, source, docs)
	result.Skipped = append(undecodable, result.Skipped...)
	return result, err
}

// Decode converts an upload item into a RawDocument.
func Decode(it ingestion.UploadItem) (ingestion.RawDocument, error) {
	switch it.Encoding {
	case "", ingestion.EncodingText:
		return ingestion.RawDocument{Name: it.Name, Data: []byte(it.Content), Kind: ingestion.KindText}, nil
	case ingestion.EncodingPDFBase64:
		data, err := extractor.DecodeBase64PDF(it.Content)
		if err != nil {
			return ingestion.RawDocument{}, err
		}
		return ingestion.RawDocument{Name: it.Name, Data: data, Kind: ingestion.KindPDF}, nil
	default:
		return ingestion.RawDocument{}, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown encoding %q", it.Encoding)
	}
}

func (p *Pipeline) extract(ctx context.Context, doc ingestion.RawDocument) (string, error) {
	if doc.Kind == ingestion.KindPDF {
		return p.extractor.ExtractPDF(ctx, doc.Data)
	}
	return extractor.Text(doc.Data), nil
}

func (p *Pipeline) commit(ctx context.Context, source string, items []store.Item, result Result) (Result, error) {
	if len(items) == 0 {
		result.Total = p.store.Len()
		return result, nil
	}
	ids, total, err := p.store.IngestBatch(ctx, items)
	if err != nil {
		return result, fmt.Errorf("ingesting %d documents from %s: %w", len(items), source, err)
	}
	result.IDs = ids
	result.Total = total
	if p.metrics != nil {
		p.metrics.DocsIngestedTotal.WithLabelValues(source).Add(float64(len(ids)))
	}
	p.logger.Info("documents ingested",
		"source", source,
		"ingested", len(ids),
		"skipped", len(result.Skipped),
		"total", total,
	)
	return result, nil
}

func (p *Pipeline) skip(result *Result, source, name string, err error) {
	reason := ingestion.ReasonExtractionFailed
	if errors.Is(err, apperrors.ErrEmptyContent) {
		reason = ingestion.ReasonEmptyContent
		p.logger.Info("skipping empty document", "source", source, "name", name)
	} else {
		p.logger.Warn("skipping document", "source", source, "name", name, "error", err)
	}
	result.Skipped = append(result.Skipped, ingestion.Skipped{Name: name, Reason: reason})
	p.countSkip(reason)
}

func (p *Pipeline) countSkip(reason string) {
	if p.metrics != nil {
		p.metrics.DocsSkippedTotal.WithLabelValues(reason).Inc()
	}
}
