package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/parser"
)

const keyPrefix = "search:"

// Backend is the key/value store behind the cache. *redis.Client from
// pkg/redis satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache memoises search results per store generation. A write to the
// store bumps the generation, so stale entries are never served; they simply
// age out under the TTL.
//
// A QueryCache serves exactly one store. Generations restart at zero with
// the process and repeat across replicas, so every key also carries a
// random instance id; a shared or surviving Redis never hands this store
// another store's answers.
type QueryCache struct {
	backend  Backend
	instance string
	ttl      time.Duration
	isMiss   func(error) bool
	group    singleflight.Group
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

// New returns a cache over backend. isMiss reports whether an error from
// Backend.Get means "key absent" rather than a failure.
func New(backend Backend, ttl time.Duration, isMiss func(error) bool) *QueryCache {
	instance := uuid.NewString()
	return &QueryCache{
		backend:  backend,
		instance: instance,
		ttl:      ttl,
		isMiss:   isMiss,
		logger:   slog.Default().With("component", "query-cache", "instance", instance),
	}
}

// Get returns the cached result for plan at generation and counts the
// lookup as a hit or a miss.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, generation uint64) (*executor.SearchResult, bool) {
	result, ok := c.lookup(ctx, c.key(plan, generation))
	c.count(ok)
	return result, ok
}

func (c *QueryCache) lookup(ctx context.Context, key string) (*executor.SearchResult, bool) {
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !c.isMiss(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *QueryCache) count(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, generation uint64, result *executor.SearchResult) {
	c.store(ctx, c.key(plan, generation), result)
}

func (c *QueryCache) store(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or runs computeFn once for all
// concurrent callers asking the same question of the same generation. Each
// call counts exactly one hit or one miss.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	generation uint64,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	key := c.key(plan, generation)
	if result, ok := c.lookup(ctx, key); ok {
		c.count(true)
		return result, true, nil
	}
	c.count(false)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the key since the first lookup.
		if result, ok := c.lookup(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached search result, including entries left by
// other instances.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) key(plan *parser.QueryPlan, generation uint64) string {
	return buildKey(c.instance, plan, generation)
}

func buildKey(instance string, plan *parser.QueryPlan, generation uint64) string {
	raw := fmt.Sprintf("%s:%s:gen=%d", instance, plan.CacheKey(), generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
