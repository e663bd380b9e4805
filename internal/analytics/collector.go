package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
)

// Publisher ships a batch of events downstream. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector records events into the local Aggregator immediately and, when a
// Publisher is configured, forwards them in batches from a background loop.
// Track never blocks: events are dropped when the buffer is full, and events
// tracked after Close are only aggregated.
type Collector struct {
	aggregator    *Aggregator
	publisher     Publisher
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a Collector. publisher may be nil, in which case
// events are only aggregated in process.
func NewCollector(aggregator *Aggregator, publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		aggregator:    aggregator,
		publisher:     publisher,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     100,
		flushInterval: time.Second,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It returns immediately; Close waits for
// the loop to drain.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				return
			}
			if c.publisher != nil {
				if err := c.publisher.PublishBatch(ctx, batch); err != nil {
					c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
				}
			}
			batch = batch[:0]
		}

		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					flush(flushCtx)
					cancel()
					return
				}
				batch = append(batch, event)
				if len(batch) >= c.batchSize {
					flush(ctx)
				}
			case <-ticker.C:
				flush(ctx)
			case <-ctx.Done():
				c.drainRemaining(&batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"publishing", c.publisher != nil,
	)
}

// Track records a SearchEvent or DocumentEvent.
func (c *Collector) Track(event any) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- kafka.Event{Key: eventKey(event), Value: event}:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the last batch to be sent. It
// must only be called after Start. Later calls only wait.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) drainRemaining(batch *[]kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			*batch = append(*batch, event)
		default:
			return
		}
	}
}

func eventKey(event any) string {
	switch event.(type) {
	case SearchEvent:
		return "search"
	case DocumentEvent:
		return "document"
	default:
		return "analytics"
	}
}
