// In file: internal/cache/cache.go

// Package cache memoizes completed evaluations in redis so that repeating an
// expression does not repeat the model calls.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Defaults used by "calcagent serve" and "calcagent cache purge".
const (
	DefaultPrefix = "calc:"
	DefaultTTL    = 24 * time.Hour
)

// Cache-status values reported to API clients.
const (
	StatusHit      = "HIT"
	StatusMiss     = "MISS"
	StatusDisabled = "DISABLED"
)

// Stats counts cache traffic since start-up.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
	// HitRate is a percentage of lookups.
	HitRate float64 `json:"hit_rate"`
}

// ResultCache is a JSON-over-redis cache with a fixed key prefix and TTL.
type ResultCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits, misses, sets, deletes, errs atomic.Uint64
}

// New creates a ResultCache over an existing redis client. Every key is
// stored under prefix and expires after ttl.
func New(client *redis.Client, prefix string, ttl time.Duration) *ResultCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the value stored under key into dest. A miss is (false, nil).
func (c *ResultCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return false, nil
	}
	if err != nil {
		c.errs.Add(1)
		return false, fmt.Errorf("cache get error: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.errs.Add(1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	c.hits.Add(1)
	return true, nil
}

// Set stores value under key for the cache TTL.
func (c *ResultCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.errs.Add(1)
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("cache set error: %w", err)
	}
	c.sets.Add(1)
	return nil
}

// Delete removes a single entry. Deleting a key that does not exist is not an
// error.
func (c *ResultCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("cache delete error: %w", err)
	}
	c.deletes.Add(1)
	return nil
}

// Purge removes every entry under the prefix and returns how many were removed.
func (c *ResultCache) Purge(ctx context.Context) (int, error) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			c.errs.Add(1)
			return deleted, fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.errs.Add(1)
				return deleted, fmt.Errorf("cache delete error: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.deletes.Add(uint64(deleted))
	return deleted, nil
}

// Stats returns a snapshot of the counters since the cache was created.
func (c *ResultCache) Stats() Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errs.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// Ping checks that redis is reachable. It is used by the health endpoint.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
