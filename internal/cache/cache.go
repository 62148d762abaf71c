// Package cache is a Redis-backed read-through cache for scoped query
// results. It is an optimization, never a source of truth: a failing
// backend degrades to direct store queries and invalidation failures are
// logged and swallowed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"remitdesk.org/internal/obs"
)

// Cache wraps a Redis client with a fixed entry TTL. A nil *Cache is valid
// and behaves as a pass-through (every lookup computes directly).
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at url and verifies connectivity.
func New(url string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client (used by tests with miniredis).
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Ping checks backend connectivity for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// ScopeKey builds the cache key for a resource kind and a scope fragment
// ("global" or "region:<R>").
func ScopeKey(resource, scope string) string {
	return resource + ":" + scope
}

// GetOrCompute serves the cached payload for key into dest when present,
// otherwise runs compute (which must fill dest) and stores the result with
// the configured TTL. Backend errors never fail the request: the lookup
// falls through to compute.
func (c *Cache) GetOrCompute(ctx context.Context, key string, dest any, compute func(context.Context) error) error {
	resource := resourceOf(key)
	if c == nil || c.client == nil {
		return compute(ctx)
	}

	payload, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal([]byte(payload), dest); jsonErr == nil {
			obs.CacheHit(resource)
			return nil
		}
		// Corrupt entry: drop it and recompute.
		c.client.Del(ctx, key)
	case err == redis.Nil:
		// Cache miss.
	default:
		obs.CacheFallback()
		logCacheError("cache lookup failed", key, err)
		return compute(ctx)
	}

	obs.CacheMiss(resource)
	if err := compute(ctx); err != nil {
		return err
	}
	if data, jsonErr := json.Marshal(dest); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			logCacheError("cache store failed", key, setErr)
		}
	}
	return nil
}

// Invalidate removes the given keys. Failures are logged, never surfaced:
// staleness is bounded by the TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logCacheError("cache invalidation failed", strings.Join(keys, ","), err)
	}
}

func resourceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func logCacheError(msg, key string, err error) {
	obs.LogEntry(map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "warn",
		"msg":   msg,
		"key":   key,
		"error": err.Error(),
	})
}
