// Package cache stores search results in Redis keyed by query, result
// count, and channel. Concurrent misses for the same key are collapsed
// through singleflight so the index is only consulted once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/tobiaswidmer/poisearch/internal/index"
	"github.com/tobiaswidmer/poisearch/pkg/config"
	"github.com/tobiaswidmer/poisearch/pkg/logger"
	pkgredis "github.com/tobiaswidmer/poisearch/pkg/redis"
)

const keyPrefix = "poisearch:"

// ResultCache caches ranked match lists in Redis.
type ResultCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a ResultCache backed by the given Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *ResultCache {
	return &ResultCache{
		client: client,
		cfg:    cfg,
		logger: logger.WithComponent("result-cache"),
	}
}

// Get returns the cached matches for a query, if present.
func (c *ResultCache) Get(ctx context.Context, q index.Query) ([]index.Match, bool) {
	key := c.buildKey(q)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var matches []index.Match
	if err := json.Unmarshal([]byte(data), &matches); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", q.Text, "key", key)
	return matches, true
}

// Set stores the matches for a query with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, q index.Query, matches []index.Match) {
	key := c.buildKey(q)
	data, err := json.Marshal(matches)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached matches or runs computeFn once per key,
// caching its result. The second return value reports a cache hit.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	q index.Query,
	computeFn func() ([]index.Match, error),
) ([]index.Match, bool, error) {
	if matches, ok := c.Get(ctx, q); ok {
		return matches, true, nil
	}
	key := c.buildKey(q)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if matches, ok := c.Get(ctx, q); ok {
			return matches, nil
		}
		matches, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, matches)
		return matches, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]index.Match), false, nil
}

// Invalidate removes every cached result. Called after an index rebuild so
// stale rankings are never served.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counters since process start.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey derives the cache key from the exact query text. The scorers are
// case-sensitive, so two texts differing only in case must never share a key.
func (c *ResultCache) buildKey(q index.Query) string {
	raw := fmt.Sprintf("%s:k=%d:channel=%s", q.Text, q.K, q.ChannelID)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
