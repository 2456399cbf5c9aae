// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides the daemon's structured logging utilities: a
// process-wide zerolog base logger, per-request context propagation, and a
// bounded in-memory ring of recent entries for operator diagnostics.
package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey     ctxKey = "request_id"
	correlationIDKey ctxKey = "correlation_id"
	commandIDKey     ctxKey = "command_id"
)

// ContextWithRequestID stores a request ID in ctx for later retrieval by
// WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithCorrelationID stores a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithCommandID stores the identifier of the in-flight parsed
// command in ctx, threaded down to the Engine adapter call.
func ContextWithCommandID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, commandIDKey, id)
}

// RequestIDFromContext extracts the request ID, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, requestIDKey)
}

// CorrelationIDFromContext extracts the correlation ID, or "" if absent.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, correlationIDKey)
}

// CommandIDFromContext extracts the command ID, or "" if absent.
func CommandIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, commandIDKey)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches logger with correlation fields pulled from ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str("request_id", rid)
		added = true
	}
	if cid := CorrelationIDFromContext(ctx); cid != "" {
		builder = builder.Str("correlation_id", cid)
		added = true
	}
	if cmdID := CommandIDFromContext(ctx); cmdID != "" {
		builder = builder.Str("command_id", cmdID)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// Config captures options for configuring the global logger.
type Config struct {
	Level   string
	Output  io.Writer
	Service string
	Version string
}

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Configure initializes the global zerolog logger. Safe to call more than
// once (e.g. in tests); the most recent call wins.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	service := cfg.Service
	if service == "" {
		service = "pipelined"
	}

	multi := io.MultiWriter(writer, &ringWriter{})

	base = zerolog.New(multi).With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()

	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

func logger() zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// L returns a pointer to a copy of the global base logger.
func L() *zerolog.Logger {
	l := logger()
	return &l
}

// WithComponent returns a child logger annotated with component.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}

// Entry is one captured line of the diagnostic ring buffer.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

const maxEntries = 200

var (
	ringMu sync.RWMutex
	ring   []Entry
)

const maxPartialBytes = 1 << 20 // 1 MiB cap on unterminated accumulation

// ringWriter is an io.Writer that parses JSON log lines into the bounded
// diagnostic ring, tolerating partial writes the same way the underlying
// zerolog writer may deliver them.
type ringWriter struct {
	mu      sync.Mutex
	partial bytes.Buffer
}

func (w *ringWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	if w.partial.Len()+len(p) > maxPartialBytes {
		w.partial.Reset()
		w.mu.Unlock()
		return len(p), nil
	}
	w.partial.Write(p)
	data := w.partial.Bytes()
	lastNL := bytes.LastIndexByte(data, '\n')
	if lastNL == -1 {
		w.mu.Unlock()
		return len(p), nil
	}
	lines := append([]byte(nil), data[:lastNL+1]...)
	remainder := append([]byte(nil), data[lastNL+1:]...)
	w.partial.Reset()
	w.partial.Write(remainder)
	w.mu.Unlock()

	start := 0
	for i, b := range lines {
		if b == '\n' {
			processLine(lines[start:i])
			start = i + 1
		}
	}
	return len(p), nil
}

func processLine(line []byte) {
	if len(line) == 0 {
		return
	}
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return
	}
	e := Entry{Fields: map[string]any{}}
	if ts, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if lvl, ok := raw["level"].(string); ok {
		e.Level = lvl
	} else {
		e.Level = "info"
	}
	if msg, ok := raw["message"].(string); ok {
		e.Message = msg
	}
	for k, v := range raw {
		switch k {
		case "time", "level", "message":
			continue
		default:
			e.Fields[k] = v
		}
	}

	ringMu.Lock()
	ring = append(ring, e)
	if len(ring) > maxEntries {
		ring = ring[1:]
	}
	ringMu.Unlock()
}

// Recent returns a copy of the most recent diagnostic log entries.
func Recent() []Entry {
	ringMu.RLock()
	defer ringMu.RUnlock()
	out := make([]Entry, len(ring))
	copy(out, ring)
	return out
}
