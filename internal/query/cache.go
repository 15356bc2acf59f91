package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vaultledger/internal/observability"
)

// Cache is a small read-through cache for query responses. A nil *Cache is
// valid and disables caching entirely.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewCache(addr, password string, db int, ttl time.Duration, metrics *observability.Metrics) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: client, ttl: ttl, metrics: metrics}
}

// NewCacheWithClient wraps an existing client, mainly for tests.
func NewCacheWithClient(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *Cache {
	return &Cache{client: client, ttl: ttl, metrics: metrics}
}

// Get unmarshals the cached value for key into dest. The second return
// value reports whether the key was present.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.miss(key)
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	c.hit(key)
	return true, nil
}

// Set stores value under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the given keys. Used after writes so the next read
// reflects committed state instead of waiting out the TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) hit(key string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(keyKind(key)).Inc()
	}
}

func (c *Cache) miss(key string) {
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(keyKind(key)).Inc()
	}
}

// keyKind strips the per-user suffix so metric cardinality stays bounded.
func keyKind(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
