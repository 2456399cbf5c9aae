// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.False(t, cfg.EnableHTTP)
	require.Equal(t, "127.0.0.1", cfg.HTTPAddress)
	require.Equal(t, 5001, cfg.HTTPPort)
	require.Equal(t, 16, cfg.HTTPMaxThreads)
	require.Equal(t, 5000, cfg.TCPPort)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9000\ntcp_port: 9090\n"), 0o600))

	cfg, err := Load(Options{FilePath: path})
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.HTTPPort)
	require.Equal(t, 9090, cfg.TCPPort)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9000\n"), 0o600))

	t.Setenv("PIPELINED_HTTP_PORT", "9500")
	cfg, err := Load(Options{FilePath: path})
	require.NoError(t, err)
	require.Equal(t, 9500, cfg.HTTPPort)
}

func TestUnboundedThreadsClamped(t *testing.T) {
	t.Setenv("PIPELINED_HTTP_MAX_THREADS", "-1")
	t.Setenv("PIPELINED_TCP_MAX_THREADS", "-1")
	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, defaultMaxThreads, cfg.HTTPMaxThreads)
	require.Equal(t, defaultMaxThreads, cfg.TCPMaxThreads)
}

func TestSnapshotDiff(t *testing.T) {
	before := Snap(Defaults())
	after := Defaults()
	after.HTTPPort = 9999
	diffs := Diff(before, Snap(after))
	require.Len(t, diffs, 1)
	require.Equal(t, "http_port", diffs[0].Field)
	require.Equal(t, "5001", diffs[0].Old)
	require.Equal(t, "9999", diffs[0].New)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(Options{FilePath: "/nonexistent/path/config.yaml"})
	require.Error(t, err)
}
