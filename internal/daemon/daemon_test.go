// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ManuGH/pipelined/internal/config"
	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.EnableTCP = true
	cfg.TCPAddress = "127.0.0.1"
	cfg.TCPPort = 0
	cfg.EnableHTTP = true
	cfg.HTTPAddress = "127.0.0.1"
	cfg.HTTPPort = 0
	return cfg
}

func TestRunAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d, err := New(ctx, testConfig(), engine.NewFake())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Give the servers a moment to bind, then request shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}

func TestNoProtocolEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.EnableTCP = false
	cfg.EnableHTTP = false

	d, err := New(ctx, cfg, engine.NewFake())
	require.NoError(t, err)
	defer d.teardown(ctx)

	require.Error(t, d.Run(ctx))
}

func TestBindFailureOnOneProtocolKeepsOther(t *testing.T) {
	// Occupy a port so the TCP server's bind fails while HTTP succeeds.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := testConfig()
	cfg.TCPPort = ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithCancel(context.Background())
	d, err := New(ctx, cfg, engine.NewFake())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}
