package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iconidentify/chalkboard/internal/metrics"
)

// keyPrefix namespaces every key this service writes.
const keyPrefix = "chalkboard:"

// Redis stores JSON-encoded values in Redis; expiry is enforced by Redis.
type Redis[V any] struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedis creates a Redis-backed cache. defaultTTL <= 0 falls back to DefaultTTL.
// namespace separates caches sharing one database, e.g. "analysis".
func NewRedis[V any](client *redis.Client, namespace string, defaultTTL time.Duration) *Redis[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	prefix := keyPrefix
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &Redis[V]{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a value from Redis. A missing key is a miss, not an error.
func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	data, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
			return zero, false, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return zero, false, fmt.Errorf("redis get: %w", err)
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return zero, false, fmt.Errorf("deserialize value: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
	return v, true, nil
}

// Set stores a value in Redis with the given TTL.
func (c *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serialize value: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(key), data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

// Delete removes a key from Redis.
func (c *Redis[V]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.buildKey(key)).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

// ClearExpired is a no-op: Redis expires keys itself.
func (c *Redis[V]) ClearExpired() int {
	return 0
}

// Ping checks connectivity to Redis.
func (c *Redis[V]) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Redis[V]) buildKey(key string) string {
	return c.prefix + key
}
