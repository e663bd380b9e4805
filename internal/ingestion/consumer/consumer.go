// Package consumer reads document ingest events from Kafka and feeds them
// through the ingestion pipeline into the document store.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
)

// Runner is the blocking consume loop; *kafka.Consumer satisfies it.
type Runner interface {
	Start(ctx context.Context) error
}

// IngestConsumer wraps a Kafka consumer to drive the ingestion pipeline.
type IngestConsumer struct {
	consumer Runner
	logger   *slog.Logger
}

// New creates an IngestConsumer backed by the given Kafka consumer.
func New(kafkaConsumer Runner) *IngestConsumer {
	return &IngestConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "ingest-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IngestConsumer) Start(ctx context.Context) error {
	ic.logger.Info("ingest consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that ingests each event as a
// single-document upload. Undecodable messages and skipped documents are
// logged and acknowledged; a store failure is returned so the consumer
// retries it before dropping the event.
func HandleMessage(p *pipeline.Pipeline) kafka.MessageHandler {
	logger := slog.Default().With("component", "ingest-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("processing ingest event", "name", event.Name, "encoding", event.Encoding)

		result, err := p.IngestUploads(ctx, "kafka", []ingestion.UploadItem{event.UploadItem()})
		if err != nil {
			return fmt.Errorf("ingesting %q: %w", event.Name, err)
		}
		if len(result.IDs) == 0 {
			logger.Warn("ingest event skipped", "name", event.Name, "skipped", result.Skipped)
			return nil
		}
		logger.Info("document ingested",
			"doc_id", result.IDs[0],
			"name", event.Name,
			"total", result.Total,
		)
		return nil
	}
}
