// Package kafka wraps segmentio/kafka-go for the two optional streams the
// service uses: analytics events published as JSON batches and document
// ingest events consumed through a MessageHandler callback.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// MessageHandler is a callback invoked for each Kafka message. A returned
// error is retried a few times before the message is given up on.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

const (
	handlerAttempts = 3
	fetchBackoffMin = 250 * time.Millisecond
	fetchBackoffMax = 10 * time.Second
)

// messageReader is the subset of *kafka.Reader the consume loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerStats counts what the consume loop has done since Start.
type ConsumerStats struct {
	Handled int64 `json:"handled"`
	Dropped int64 `json:"dropped"`
	Fetch   int64 `json:"fetch_errors"`
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler. Each message is committed once it is handled or dropped,
// so one bad event never stalls its partition.
type Consumer struct {
	reader  messageReader
	topic   string
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig

	handled     atomic.Int64
	dropped     atomic.Int64
	fetchErrors atomic.Int64
}

// NewConsumer creates a Consumer for the given topic and handler.
// startOffset (kafka.FirstOffset or kafka.LastOffset) applies only when the
// consumer group has no committed offset yet.
func NewConsumer(cfg config.KafkaConfig, topic string, startOffset int64, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    startOffset,
		CommitInterval: 0,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   topic,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:  handlerAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

// Start runs the consume loop until ctx is cancelled, then closes the
// reader. Fetch failures back off exponentially instead of spinning.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	backoff := fetchBackoffMin
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.fetchErrors.Add(1)
			c.logger.Error("failed to fetch message", "error", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return c.reader.Close()
			}
			backoff = min(backoff*2, fetchBackoffMax)
			continue
		}
		backoff = fetchBackoffMin
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("message received",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"value_size", len(msg.Value),
	)
	op := fmt.Sprintf("%s@%d/%d", c.topic, msg.Partition, msg.Offset)
	err := resilience.Retry(ctx, op, c.retry, func() error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
	if err != nil {
		if ctx.Err() != nil {
			// Leave the offset uncommitted so the message is redelivered.
			return
		}
		c.dropped.Add(1)
		c.logger.Error("dropping message after failed attempts",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempts", c.retry.MaxAttempts,
			"error", err,
		)
	} else {
		c.handled.Add(1)
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// Stats returns a snapshot of the loop's counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Handled: c.handled.Load(),
		Dropped: c.dropped.Load(),
		Fetch:   c.fetchErrors.Load(),
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

// Ping dials each broker in turn and succeeds on the first that answers.
// Used by the readiness check.
func Ping(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("dialing kafka: %w", lastErr)
}
