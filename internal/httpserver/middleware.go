// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpserver

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/ManuGH/pipelined/internal/envelope"
	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/metrics"
	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"
)

const (
	corsAllowOrigin  = "*"
	corsAllowHeaders = "origin,range,content-type"
	corsAllowMethods = "PUT, GET, POST, DELETE"
)

// corsMiddleware appends the CORS headers to every response and answers
// OPTIONS preflights inline with an empty 200. The headers go on the
// response header map, never the request's.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !httpguts.ValidHeaderFieldValue(origin) {
			// A header-injection attempt, not a browser.
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware converts a panicking handler into a BAD_COMMAND-shaped
// envelope plus a logged stack instead of tearing the daemon down.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(envelope.Render(rcode.BadCommand, ""))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware assigns each request a fresh ID, threaded through
// the context down to the Engine adapter call.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := log.ContextWithRequestID(r.Context(), id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logMiddleware records method/path/status/duration per request and feeds
// the HTTP request counter.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Inc()
		reqLog := log.WithContext(r.Context(), s.logger)
		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request served")
	})
}
