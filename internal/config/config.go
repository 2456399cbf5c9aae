// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon's startup options with precedence
// ENV > YAML file > flag defaults, and can snapshot two configurations and
// report the fields that differ between them.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ManuGH/pipelined/internal/log"
	"gopkg.in/yaml.v3"
)

// unboundedThreads is the "-1" (unlimited) thread-pool size an operator may
// request; Clamp replaces it with defaultMaxThreads and logs a warning.
const unboundedThreads = -1

// defaultMaxThreads is substituted whenever a thread-pool size is
// requested as unbounded (-1).
const defaultMaxThreads = 64

// Config is the fully resolved set of daemon startup options.
type Config struct {
	EnableHTTP     bool   `yaml:"enable_http_protocol"`
	HTTPAddress    string `yaml:"http_address"`
	HTTPPort       int    `yaml:"http_port"`
	HTTPMaxThreads int    `yaml:"http_max_threads"`

	EnableTCP     bool   `yaml:"enable_tcp_protocol"`
	TCPAddress    string `yaml:"tcp_address"`
	TCPPort       int    `yaml:"tcp_port"`
	TCPMaxThreads int    `yaml:"tcp_max_threads"`

	LogLevel string `yaml:"log_level"`

	// OTELEndpoint, when non-empty, enables OTLP/gRPC trace export.
	OTELEndpoint string `yaml:"otel_endpoint"`

	// RedisAddr, when non-empty, enables the read-through status cache.
	RedisAddr string `yaml:"redis_addr"`

	// DebugOverridesFile, when non-empty, is watched for live updates to
	// the Debug Node's settings.
	DebugOverridesFile string `yaml:"debug_overrides_file"`
}

// Defaults returns the baseline configuration before file/env overlay.
func Defaults() Config {
	return Config{
		EnableHTTP:     false,
		HTTPAddress:    "127.0.0.1",
		HTTPPort:       5001,
		HTTPMaxThreads: 16,

		EnableTCP:     false,
		TCPAddress:    "127.0.0.1",
		TCPPort:       5000,
		TCPMaxThreads: 16,

		LogLevel: "info",
	}
}

// Options controls how Load resolves a Config.
type Options struct {
	// FilePath is an optional YAML file supplying overlay values.
	FilePath string
}

// Load resolves a Config from flag defaults, an optional YAML file, and
// environment variables, in that increasing order of precedence, then
// validates and clamps the result.
func Load(opts Options) (Config, error) {
	cfg := Defaults()

	if opts.FilePath != "" {
		if err := mergeFile(&cfg, opts.FilePath); err != nil {
			return Config{}, fmt.Errorf("config: loading file %s: %w", opts.FilePath, err)
		}
	}

	mergeEnv(&cfg)
	cfg.Clamp()
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func mergeEnv(cfg *Config) {
	logger := log.WithComponent("config")

	cfg.EnableHTTP = envBool("PIPELINED_ENABLE_HTTP_PROTOCOL", cfg.EnableHTTP)
	cfg.HTTPAddress = envString("PIPELINED_HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.HTTPPort = envInt("PIPELINED_HTTP_PORT", cfg.HTTPPort)
	cfg.HTTPMaxThreads = envInt("PIPELINED_HTTP_MAX_THREADS", cfg.HTTPMaxThreads)

	cfg.EnableTCP = envBool("PIPELINED_ENABLE_TCP_PROTOCOL", cfg.EnableTCP)
	cfg.TCPAddress = envString("PIPELINED_TCP_ADDRESS", cfg.TCPAddress)
	cfg.TCPPort = envInt("PIPELINED_TCP_PORT", cfg.TCPPort)
	cfg.TCPMaxThreads = envInt("PIPELINED_TCP_MAX_THREADS", cfg.TCPMaxThreads)

	cfg.LogLevel = envString("PIPELINED_LOG_LEVEL", cfg.LogLevel)
	cfg.OTELEndpoint = envString("PIPELINED_OTEL_ENDPOINT", cfg.OTELEndpoint)
	cfg.RedisAddr = envString("PIPELINED_REDIS_ADDR", cfg.RedisAddr)
	cfg.DebugOverridesFile = envString("PIPELINED_DEBUG_OVERRIDES_FILE", cfg.DebugOverridesFile)

	logger.Debug().Msg("config: environment overlay applied")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Clamp replaces any unbounded (-1) thread-pool size with a bounded
// default, logging once per field so operators can see the substitution.
// Load applies it automatically; callers overlaying flag values afterwards
// re-apply it.
func (cfg *Config) Clamp() {
	logger := log.WithComponent("config")
	if cfg.HTTPMaxThreads == unboundedThreads {
		logger.Warn().Int("clamped_to", defaultMaxThreads).Msg("http_max_threads requested unbounded, clamping")
		cfg.HTTPMaxThreads = defaultMaxThreads
	}
	if cfg.TCPMaxThreads == unboundedThreads {
		logger.Warn().Int("clamped_to", defaultMaxThreads).Msg("tcp_max_threads requested unbounded, clamping")
		cfg.TCPMaxThreads = defaultMaxThreads
	}
	if cfg.HTTPMaxThreads <= 0 {
		cfg.HTTPMaxThreads = defaultMaxThreads
	}
	if cfg.TCPMaxThreads <= 0 {
		cfg.TCPMaxThreads = defaultMaxThreads
	}
}

// Snapshot is an immutable point-in-time copy of a Config, compared by Diff
// to report which fields changed. The debug_reset shorthand does not use it.
type Snapshot struct {
	cfg Config
}

// Snap captures a Snapshot of cfg.
func Snap(cfg Config) Snapshot {
	return Snapshot{cfg: cfg}
}

// FieldDiff names one changed configuration field.
type FieldDiff struct {
	Field string
	Old   string
	New   string
}

// Diff compares two snapshots and returns the set of changed fields.
func Diff(before, after Snapshot) []FieldDiff {
	var diffs []FieldDiff
	add := func(field, oldV, newV string) {
		if oldV != newV {
			diffs = append(diffs, FieldDiff{Field: field, Old: oldV, New: newV})
		}
	}
	b, a := before.cfg, after.cfg
	add("enable_http_protocol", fmt.Sprint(b.EnableHTTP), fmt.Sprint(a.EnableHTTP))
	add("http_address", b.HTTPAddress, a.HTTPAddress)
	add("http_port", fmt.Sprint(b.HTTPPort), fmt.Sprint(a.HTTPPort))
	add("http_max_threads", fmt.Sprint(b.HTTPMaxThreads), fmt.Sprint(a.HTTPMaxThreads))
	add("enable_tcp_protocol", fmt.Sprint(b.EnableTCP), fmt.Sprint(a.EnableTCP))
	add("tcp_address", b.TCPAddress, a.TCPAddress)
	add("tcp_port", fmt.Sprint(b.TCPPort), fmt.Sprint(a.TCPPort))
	add("tcp_max_threads", fmt.Sprint(b.TCPMaxThreads), fmt.Sprint(a.TCPMaxThreads))
	add("log_level", b.LogLevel, a.LogLevel)
	return diffs
}
