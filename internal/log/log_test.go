// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextPropagation(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithCommandID(ctx, "cmd-1")

	require.Equal(t, "req-1", RequestIDFromContext(ctx))
	require.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	require.Equal(t, "cmd-1", CommandIDFromContext(ctx))
}

func TestContextFromContextAbsent(t *testing.T) {
	require.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestConfigureAndRecent(t *testing.T) {
	Configure(Config{Level: "debug", Output: io.Discard, Service: "pipelined-test"})
	l := WithComponent("test")
	l.Info().Msg("hello from test")

	entries := Recent()
	require.NotEmpty(t, entries)
	found := false
	for _, e := range entries {
		if e.Message == "hello from test" {
			found = true
			require.Equal(t, "test", e.Fields["component"])
		}
	}
	require.True(t, found)
}

func TestWithContextAddsFields(t *testing.T) {
	Configure(Config{Output: io.Discard})
	ctx := ContextWithRequestID(context.Background(), "abc")
	l := WithContext(ctx, *L())
	require.NotNil(t, l)
}
