// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) StatusCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisClient(client)
}

func TestRedisCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, StatusCacheKey)
	require.False(t, ok)

	c.Set(ctx, StatusCacheKey, `{"status":"ok"}`, time.Minute)
	val, ok := c.Get(ctx, StatusCacheKey)
	require.True(t, ok)
	require.Equal(t, `{"status":"ok"}`, val)
}

func TestRedisCacheInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, StatusCacheKey, `{"status":"ok"}`, time.Minute)
	c.Invalidate(ctx, StatusCacheKey)

	_, ok := c.Get(ctx, StatusCacheKey)
	require.False(t, ok)
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	c := Noop()
	ctx := context.Background()
	c.Set(ctx, StatusCacheKey, "anything", time.Minute)
	_, ok := c.Get(ctx, StatusCacheKey)
	require.False(t, ok)
}
