package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
)

// Event is one analytics record. Key selects the partition and tells the
// reading side how to decode Value.
type Event struct {
	Key   string
	Value any
}

// Producer publishes JSON-encoded events to one topic. It satisfies
// analytics.Publisher.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for topic. Writes are synchronous and
// acknowledged by the partition leader; same-key events share a partition,
// which keeps their order.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireOne,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// PublishBatch writes events in a single call. An empty batch is a no-op.
// If any event fails to encode nothing is sent.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish batch", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing %d events: %w", len(msgs), err)
	}
	p.logger.Debug("batch published", "count", len(msgs), "duration", time.Since(start))
	return nil
}

func encode(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s event: %w", e.Key, err)
		}
		msgs[i] = kafka.Message{Key: []byte(e.Key), Value: value}
	}
	return msgs, nil
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
