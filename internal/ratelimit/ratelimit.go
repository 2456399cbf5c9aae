// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ratelimit throttles per-connection command rates on the TCP
// protocol server, complementing the HTTP server's httprate middleware.
package ratelimit

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rejections = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pipelined",
	Name:      "tcp_ratelimit_rejections_total",
	Help:      "Commands rejected by the per-connection TCP rate limiter.",
})

// Config controls the per-connection token bucket.
type Config struct {
	Rate  rate.Limit // commands per second
	Burst int
}

// DefaultConfig mirrors a generous operator default: bursty interactive
// use is unaffected, sustained command floods are throttled.
func DefaultConfig() Config {
	return Config{Rate: 50, Burst: 100}
}

// ConnLimiter is a single TCP connection's token bucket, created fresh per
// accepted connection and discarded when it closes.
type ConnLimiter struct {
	limiter *rate.Limiter
}

// NewConnLimiter builds a ConnLimiter from cfg.
func NewConnLimiter(cfg Config) *ConnLimiter {
	return &ConnLimiter{limiter: rate.NewLimiter(cfg.Rate, cfg.Burst)}
}

// Allow reports whether the next command on this connection may proceed,
// consuming a token if so.
func (c *ConnLimiter) Allow() bool {
	ok := c.limiter.Allow()
	if !ok {
		rejections.Inc()
	}
	return ok
}

// Wait blocks until a token is available or ctx is done.
func (c *ConnLimiter) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Registry tracks one ConnLimiter per active connection, keyed by a
// caller-chosen connection identifier, so metrics/shutdown code can reason
// about the active set without threading limiters through every call site.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*ConnLimiter
	cfg      Config
}

// NewRegistry builds a Registry applying cfg to every new connection.
func NewRegistry(cfg Config) *Registry {
	return &Registry{limiters: make(map[string]*ConnLimiter), cfg: cfg}
}

// Acquire creates and registers a ConnLimiter for connID.
func (r *Registry) Acquire(connID string) *ConnLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := NewConnLimiter(r.cfg)
	r.limiters[connID] = l
	return l
}

// Release removes the ConnLimiter for connID, called when the connection
// closes.
func (r *Registry) Release(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, connID)
}

// Active reports the number of currently tracked connections.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
