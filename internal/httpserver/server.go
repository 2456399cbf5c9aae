// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpserver maps HTTP methods onto the CRUD verb set:
// GET→read, POST→create, PUT→update, DELETE→delete, with OPTIONS answered
// inline. All non-fast-path requests run on a bounded worker pool; two
// reserved paths (/health, /pipelines/status) bypass the pool and the
// parser entirely.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/pipelined/internal/cache"
	"github.com/ManuGH/pipelined/internal/envelope"
	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/history"
	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/parser"
	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/ManuGH/pipelined/internal/tree"
	"github.com/ManuGH/pipelined/internal/workerpool"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/pipelined/internal/metrics"
)

// maxBodyBytes caps a request body read, mirroring the TCP command cap.
const maxBodyBytes = 1 << 20

// statusCacheTTL bounds staleness of the /pipelines/status read-through
// cache between invalidations.
const statusCacheTTL = time.Second

const statusCacheKey = cache.StatusCacheKey

// Options configures a Server.
type Options struct {
	// StatusCache fronts /pipelines/status; cache.Noop() disables it.
	StatusCache cache.StatusCache
	// History, when non-nil, serves GET /commands/recent.
	History *history.Store
	// RateLimit is the per-client-IP request budget per minute; 0
	// disables the limiter.
	RateLimit int
}

// pool is the submission surface httpserver needs from the worker pool,
// narrowed so tests can substitute a rejecting pool.
type pool interface {
	Submit(workerpool.Task) error
	Stop()
}

// Server is the HTTP protocol server.
type Server struct {
	session    *tree.Session
	dispatcher *parser.Dispatcher
	pool       pool
	cache      cache.StatusCache
	history    *history.Store
	logger     zerolog.Logger
	handler    http.Handler

	// reqMu orders descriptor publication, completion, and pool teardown
	// (the HTTP request mutex). No other lock is acquired while
	// it is held.
	reqMu sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	stopOnce sync.Once
}

// New builds a Server serving session through d.
func New(session *tree.Session, d *parser.Dispatcher, opts Options, p pool) (*Server, error) {
	doc, err := loadOpenAPIDoc()
	if err != nil {
		return nil, fmt.Errorf("httpserver: openapi description invalid: %w", err)
	}
	statusCache := opts.StatusCache
	if statusCache == nil {
		statusCache = cache.Noop()
	}
	s := &Server{
		session:    session,
		dispatcher: d,
		pool:       p,
		cache:      statusCache,
		history:    opts.History,
		logger:     log.WithComponent("httpserver"),
	}
	s.handler = s.buildHandler(opts, doc)
	return s, nil
}

func (s *Server) buildHandler(opts Options, openapiJSON []byte) http.Handler {
	mux := http.NewServeMux()

	// Fast paths and read-only operational endpoints run inline on the
	// accept task, never through the pool.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /pipelines/status", s.handlePipelinesStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openapiJSON)
	})
	mux.HandleFunc("GET /commands/recent", s.handleCommandsRecent)
	mux.HandleFunc("GET /logs/recent", s.handleLogsRecent)

	mux.HandleFunc("/", s.handleCommand)

	var h http.Handler = mux
	if opts.RateLimit > 0 {
		h = httprate.LimitByIP(opts.RateLimit, time.Minute)(h)
	}
	h = s.corsMiddleware(h)
	h = s.recoverMiddleware(h)
	h = s.logMiddleware(h)
	h = middleware.RealIP(h)
	h = s.requestIDMiddleware(h)
	return otelhttp.NewHandler(h, "pipelined.http")
}

// Start binds address and serves until Stop. A bind failure is translated
// to NoConnection.
func (s *Server) Start(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return rcode.New(rcode.NoConnection, fmt.Errorf("http bind %s: %w", address, err))
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.listener = ln
	s.httpSrv = srv
	s.mu.Unlock()

	s.logger.Info().Str("address", ln.Addr().String()).Msg("http server listening")
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("http serve failed")
		}
	}()
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

// Handler exposes the assembled handler chain for in-process tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Stop drains the worker pool (waiting for queued and in-flight commands),
// then shuts the HTTP listener down. Releasing the server before the
// workers drain would let a worker touch an already-finalized response.
// Stop is idempotent.
func (s *Server) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.reqMu.Lock()
		p := s.pool
		s.reqMu.Unlock()
		p.Stop()

		s.mu.Lock()
		srv := s.httpSrv
		s.mu.Unlock()
		if srv != nil {
			_ = srv.Shutdown(ctx)
		}
		s.logger.Info().Msg("http server stopped")
	})
}

// requestDescriptor carries one paused request from the accept task to a
// worker. Fields are published under reqMu and read back under reqMu in
// the worker.
type requestDescriptor struct {
	w    http.ResponseWriter
	cmd  parser.Command
	ctx  context.Context
	done chan struct{}
}

// handleCommand is the non-fast-path entry: normalize the request into a
// Command, hand it to the pool, and hold the handler open until the worker
// completes the response (the net/http rendition of pause/unpause).
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, code := s.commandFromRequest(r)
	if code != rcode.EOK {
		s.writeEnvelope(w, code, "")
		return
	}

	s.reqMu.Lock()
	desc := &requestDescriptor{w: w, cmd: cmd, ctx: r.Context(), done: make(chan struct{})}
	s.reqMu.Unlock()
	err := s.pool.Submit(func() { s.workerTask(desc) })
	if err != nil {
		// Overflow or shutdown: fail this request alone with 503; the
		// descriptor dies here with nothing leaked.
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	<-desc.done
}

// workerTask executes one queued command and completes its response.
func (s *Server) workerTask(desc *requestDescriptor) {
	s.reqMu.Lock()
	w, cmd, ctx := desc.w, desc.cmd, desc.ctx
	s.reqMu.Unlock()

	code, output := s.dispatcher.Dispatch(ctx, cmd)

	if code == rcode.EOK && (cmd.Verb == parser.VerbCreate || cmd.Verb == parser.VerbDelete) &&
		strings.HasPrefix(cmd.Path, "/pipelines") {
		s.cache.Invalidate(ctx, statusCacheKey)
	}

	s.writeEnvelope(w, code, output)

	s.reqMu.Lock()
	close(desc.done)
	s.reqMu.Unlock()
}

// commandFromRequest maps the HTTP method, path, JSON body, and query onto
// a Command: GET→read, POST→create, PUT→update, DELETE→delete.
func (s *Server) commandFromRequest(r *http.Request) (parser.Command, rcode.Code) {
	name, description, code := s.extractOperands(r)
	if code != rcode.EOK {
		return parser.Command{}, code
	}
	path := r.URL.Path

	switch r.Method {
	case http.MethodGet:
		return parser.Command{Verb: parser.VerbRead, Path: path}, rcode.EOK
	case http.MethodPost:
		if name == "" {
			return parser.Command{}, rcode.BadValue
		}
		return parser.Command{Verb: parser.VerbCreate, Path: path, Name: name, Operand: description}, rcode.EOK
	case http.MethodPut:
		if name == "" {
			return parser.Command{}, rcode.BadValue
		}
		return parser.Command{Verb: parser.VerbUpdate, Path: path, Name: name}, rcode.EOK
	case http.MethodDelete:
		if name == "" {
			return parser.Command{}, rcode.BadValue
		}
		return parser.Command{Verb: parser.VerbDelete, Path: path, Name: name}, rcode.EOK
	default:
		return parser.Command{}, rcode.BadCommand
	}
}

// extractOperands pulls name/description from a JSON body when the request
// carries one, with query-string values filling any field the body left
// unset.
func (s *Server) extractOperands(r *http.Request) (name, description string, code rcode.Code) {
	if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return "", "", rcode.BadValue
		}
		if len(body) > 0 {
			var fields struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(body, &fields); err != nil {
				return "", "", rcode.BadValue
			}
			name, description = fields.Name, fields.Description
		}
	}

	query := r.URL.Query()
	if name == "" {
		if err := runtime.BindQueryParameter("form", true, false, "name", query, &name); err != nil {
			return "", "", rcode.BadValue
		}
	}
	if description == "" {
		if err := runtime.BindQueryParameter("form", true, false, "description", query, &description); err != nil {
			return "", "", rcode.BadValue
		}
	}
	return name, description, rcode.EOK
}

// writeEnvelope emits the shared JSON envelope with the code's mapped HTTP
// status. A 204 carries no body by definition, so the envelope is elided
// there.
func (s *Server) writeEnvelope(w http.ResponseWriter, code rcode.Code, output string) {
	status := code.HTTPStatus()
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(envelope.Render(code, output))
}

// handleHealth is the liveness fast path: static, inline, never touching
// the Engine.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"code":0,"description":"OK","response":{"status":"healthy"}}`))
}

// handlePipelinesStatus is the status fast path: a lightweight listing of
// pipelines by name and current state, iterated under the Pipelines
// container lock, with each node retained for the duration of its state
// query so a concurrent delete cannot free it mid-read.
func (s *Server) handlePipelinesStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "application/json")

	if cached, ok := s.cache.Get(ctx, statusCacheKey); ok {
		_, _ = w.Write([]byte(cached))
		return
	}

	type entry struct {
		name  string
		state string
	}
	var entries []entry
	s.session.Pipelines().WithChildren(func(children []tree.Node) {
		for _, child := range children {
			p, ok := child.(*tree.Pipeline)
			if !ok {
				continue
			}
			p.Retain()
			entries = append(entries, entry{name: p.Name(), state: string(p.QueryStateFast(ctx))})
			p.Release()
		}
	})

	f := format.New()
	f.BeginObject().
		SetMemberName("pipelines").BeginArray()
	for _, e := range entries {
		f.BeginObject().
			SetMemberName("name").SetValue(e.name).
			SetMemberName("state").SetValue(e.state).
			EndObject()
	}
	f.EndArray().
		SetMemberName("count").SetValue(len(entries)).
		EndObject()
	payload, err := f.Generate()
	if err != nil {
		s.writeEnvelope(w, rcode.BadCommand, "")
		return
	}

	body := string(envelope.Render(rcode.EOK, payload))
	s.cache.Set(ctx, statusCacheKey, body, statusCacheTTL)
	_, _ = w.Write([]byte(body))
}

// handleCommandsRecent serves the bounded, sqlite-backed dispatch history.
func (s *Server) handleCommandsRecent(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeEnvelope(w, rcode.NoResource, "")
		return
	}
	entries, err := s.history.Recent(r.Context(), 100)
	if err != nil {
		s.writeEnvelope(w, rcode.BadCommand, "")
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		s.writeEnvelope(w, rcode.BadCommand, "")
		return
	}
	s.writeEnvelope(w, rcode.EOK, string(payload))
}

// handleLogsRecent serves the in-memory diagnostic log ring.
func (s *Server) handleLogsRecent(w http.ResponseWriter, r *http.Request) {
	payload, err := json.Marshal(log.Recent())
	if err != nil {
		s.writeEnvelope(w, rcode.BadCommand, "")
		return
	}
	s.writeEnvelope(w, rcode.EOK, string(payload))
}
