// Package redis backs the search result cache with go-redis/v9. Calls go
// through a circuit breaker so an unreachable Redis degrades searches to
// uncached execution instead of stalling them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

const scanBatch = 100

// Client is the cache backend. Reads and writes share one breaker.
type Client struct {
	rdb     *redis.Client
	breaker *resilience.CircuitBreaker
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{
		rdb: rdb,
		breaker: resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
			IsFailure:        isOutage,
		}),
	}, nil
}

// Get returns the string value for key. A missing key yields redis.Nil and
// does not count against the breaker.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := c.breaker.Execute(func() error {
		var err error
		val, err = c.rdb.Get(ctx, key).Result()
		return err
	})
	return val, err
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.breaker.Execute(func() error {
		return c.rdb.Set(ctx, key, value, ttl).Err()
	})
}

// FlushByPattern removes every key matching the glob pattern and returns how
// many were removed. Each scanned batch goes out as a single UNLINK.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		deleted int64
		batch   = make([]string, 0, scanBatch)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("unlinking %d keys: %w", len(batch), err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s: %w", pattern, err)
	}
	return deleted, flush()
}

// isOutage separates Redis being unreachable from ordinary misses and
// callers giving up.
func isOutage(err error) bool {
	return !IsNilError(err) && !errors.Is(err, context.Canceled)
}

// IsNilError reports whether err is a Redis key-not-found error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// BreakerState reports the circuit state for health checks.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
