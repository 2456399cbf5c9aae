// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestConnLimiterAllowsWithinBurst(t *testing.T) {
	l := NewConnLimiter(Config{Rate: rate.Limit(1), Burst: 3})
	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow())
}

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	r.Acquire("conn-1")
	r.Acquire("conn-2")
	require.Equal(t, 2, r.Active())

	r.Release("conn-1")
	require.Equal(t, 1, r.Active())
}
