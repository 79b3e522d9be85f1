// Package cache stores search responses in Redis keyed by conversation and
// query, so repeated queries skip index evaluation until the conversation
// is rebuilt.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/redis"
)

const (
	keyPrefix = "search:"
	allScope  = "all"
)

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	client  Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache writing entries with the given TTL. m may be nil.
func New(client Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Search returns the cached single-conversation result or computes and
// stores it. The bool reports a cache hit.
func (c *QueryCache) Search(
	ctx context.Context,
	conv, raw string,
	limit int,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	return getOrCompute(ctx, c, buildKey("conv:"+conv, raw, limit), compute)
}

// SearchAll is Search for queries spanning every conversation.
func (c *QueryCache) SearchAll(
	ctx context.Context,
	raw string,
	limit int,
	compute func() (*executor.GlobalResult, error),
) (*executor.GlobalResult, bool, error) {
	return getOrCompute(ctx, c, buildKey(allScope, raw, limit), compute)
}

func getOrCompute[T any](ctx context.Context, c *QueryCache, key string, compute func() (*T, error)) (*T, bool, error) {
	if v, ok := get[T](ctx, c, key, true); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have filled the key while this one waited.
		if v, ok := get[T](ctx, c, key, false); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*T), false, nil
}

// get reads key; record controls whether the lookup counts towards the
// hit and miss statistics.
func get[T any](ctx context.Context, c *QueryCache, key string, record bool) (*T, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		if record {
			c.miss()
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		if record {
			c.miss()
		}
		return nil, false
	}
	if !record {
		return &v, true
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "key", key)
	return &v, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// InvalidateConversation drops every cached result that could include
// conv: its own queries and all cross-conversation queries.
func (c *QueryCache) InvalidateConversation(ctx context.Context, conv string) (int64, error) {
	var total int64
	for _, pattern := range []string{
		keyPrefix + "conv:" + escapeGlob(conv) + ":*",
		keyPrefix + allScope + ":*",
	} {
		n, err := c.client.FlushByPattern(ctx, pattern)
		if err != nil {
			return total, fmt.Errorf("invalidating cache for %s: %w", conv, err)
		}
		total += n
	}
	c.logger.Info("cache invalidated", "conversation", conv, "keys_deleted", total)
	return total, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey hashes the whitespace-normalised query. Operators are case
// sensitive and evaluated left to right, so nothing else is normalised.
func buildKey(scope, raw string, limit int) string {
	normalized := strings.Join(strings.Fields(raw), " ")
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:limit=%d", normalized, limit)))
	return fmt.Sprintf("%s%s:%x", keyPrefix, scope, hash[:16])
}

// escapeGlob protects conversation names containing Redis glob
// metacharacters.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
