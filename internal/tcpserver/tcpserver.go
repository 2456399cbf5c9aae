// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tcpserver implements the line-oriented TCP command protocol
//: one accepted connection per goroutine, one command per
// read up to 1 MiB, one NUL-terminated JSON envelope per response.
package tcpserver

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/ManuGH/pipelined/internal/envelope"
	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/metrics"
	"github.com/ManuGH/pipelined/internal/parser"
	"github.com/ManuGH/pipelined/internal/ratelimit"
	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxCommandBytes caps a single command read (up to 1 MiB; a
// larger body is truncated and still parsed).
const maxCommandBytes = 1 << 20

// Server is the TCP protocol server. Connections beyond the configured
// soft cap wait in the kernel accept queue rather than spawning unbounded
// goroutines.
type Server struct {
	dispatcher *parser.Dispatcher
	limits     *ratelimit.Registry
	maxConns   int
	logger     zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool

	conns sync.WaitGroup
	sem   chan struct{}
}

// New builds a Server dispatching through d, with at most maxConns
// concurrently served connections.
func New(d *parser.Dispatcher, maxConns int) *Server {
	if maxConns < 1 {
		maxConns = 1
	}
	return &Server{
		dispatcher: d,
		limits:     ratelimit.NewRegistry(ratelimit.DefaultConfig()),
		maxConns:   maxConns,
		logger:     log.WithComponent("tcpserver"),
		sem:        make(chan struct{}, maxConns),
	}
}

// Start binds address and begins accepting connections on a background
// goroutine. A bind failure is translated to NoConnection.
func (s *Server) Start(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return rcode.New(rcode.NoConnection, fmt.Errorf("tcp bind %s: %w", address, err))
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = ln.Close()
		return rcode.New(rcode.NoConnection, fmt.Errorf("server already stopped"))
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info().Str("address", ln.Addr().String()).Msg("tcp server listening")

	s.conns.Add(1)
	go s.acceptLoop(ctx, ln)
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.conns.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed by Stop, or a transient accept failure
			// after it; either way the loop ends only on close.
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			s.logger.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.sem <- struct{}{}
		s.conns.Add(1)
		go func() {
			defer func() {
				<-s.sem
				s.conns.Done()
			}()
			s.serveConn(ctx, conn)
		}()
	}
}

// serveConn runs the per-connection command loop. Every exit path closes
// the connection; a leaked descriptor here exhausts the process fd table
// under sustained load.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	connID := uuid.NewString()
	remote := conn.RemoteAddr().String()
	limiter := s.limits.Acquire(connID)
	defer s.limits.Release(connID)

	metrics.TCPConnectionsActive.Inc()
	defer metrics.TCPConnectionsActive.Dec()

	ctx = log.ContextWithCorrelationID(ctx, connID)
	logger := log.WithContext(ctx, s.logger)

	buf := make([]byte, maxCommandBytes)
	served := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			logger.Info().Str("remote", remote).Int("commands", served).Msg("connection closed")
			break
		}

		requestCtx := log.ContextWithRequestID(ctx, uuid.NewString())
		code, output := s.dispatcher.Execute(requestCtx, buf[:n])
		served++

		// Envelope plus trailing NUL in a single write.
		response := append(envelope.Render(code, output), 0)
		if _, err := conn.Write(response); err != nil {
			logger.Info().Str("remote", remote).Int("commands", served).Err(err).Msg("write failed, closing")
			break
		}
	}
}

// Stop closes the listener and waits for outstanding connection tasks.
// The stopped flag is set before the listener close so a concurrent Start
// cannot race a second close, and so the accept loop can tell
// shutdown from a transient accept error. Stop is idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	s.conns.Wait()
	s.logger.Info().Msg("tcp server stopped")
}
