// Package loader supplies documents to the store at startup: a directory of
// PDF and text files, and optionally a PostgreSQL table.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/pipeline"
)

// Source yields raw documents. Order defines initial id assignment.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]ingestion.RawDocument, error)
}

// LoadAll ingests every source in turn. A failing source is logged and the
// rest still load; the error reports how many sources failed.
func LoadAll(ctx context.Context, p *pipeline.Pipeline, sources ...Source) (int, error) {
	logger := slog.Default().With("component", "loader")
	var loaded, failed int
	for _, src := range sources {
		docs, err := src.Load(ctx)
		if err != nil {
			logger.Error("loading source failed", "source", src.Name(), "error", err)
			failed++
			continue
		}
		result, err := p.Ingest(ctx, src.Name(), docs)
		if err != nil {
			return loaded, fmt.Errorf("ingesting source %s: %w", src.Name(), err)
		}
		loaded += len(result.IDs)
		logger.Info("source loaded",
			"source", src.Name(),
			"found", len(docs),
			"ingested", len(result.IDs),
			"skipped", len(result.Skipped),
		)
	}
	if failed > 0 {
		return loaded, fmt.Errorf("%d of %d sources failed to load", failed, len(sources))
	}
	return loaded, nil
}
