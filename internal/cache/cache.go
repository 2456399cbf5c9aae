// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cache provides an optional, ephemeral TTL read-through cache in
// front of the /pipelines/status fast-path endpoint. It is never a source
// of truth for pipeline state: a cache miss or a disabled cache simply
// means the request falls through to a fresh tree walk.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache fronts repeated reads of rendered pipeline status documents.
type StatusCache interface {
	// Get returns the cached rendered document for key, if present and
	// unexpired.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration)
	// Invalidate removes key, called on any create/delete under /pipelines.
	Invalidate(ctx context.Context, key string)
}

// noopCache is used when no Redis address is configured; every Get misses.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (string, bool)  { return "", false }
func (noopCache) Set(context.Context, string, string, time.Duration) {}
func (noopCache) Invalidate(context.Context, string)          {}

// Noop returns a StatusCache that never caches, used when the cache is
// disabled via configuration.
func Noop() StatusCache { return noopCache{} }

// redisCache is a StatusCache backed by a redis client (real server or
// miniredis in tests).
type redisCache struct {
	client *redis.Client
}

// NewRedis returns a StatusCache backed by the given redis address.
func NewRedis(addr string) StatusCache {
	return &redisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisClient wraps an already-constructed client, used by tests to
// point at a miniredis instance.
func NewRedisClient(client *redis.Client) StatusCache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.client.Set(ctx, key, value, ttl)
}

func (c *redisCache) Invalidate(ctx context.Context, key string) {
	c.client.Del(ctx, key)
}

// StatusCacheKey is the fixed key used for the /pipelines/status document;
// the cache stores only this single entry, invalidated on tree mutation.
const StatusCacheKey = "pipelines:status"
