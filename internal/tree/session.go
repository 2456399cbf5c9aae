// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"sync"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Session is the process-singleton root of the object tree. It
// owns the Pipelines container and the Debug node and is observed globally
// by every request handler.
type Session struct {
	nodeIdentity
	pipelines *Pipelines
	debug     *Debug
}

var (
	sessionMu       sync.Mutex
	sessionInstance *Session
)

// Acquire returns the process Session, constructing it on first call under
// a process-wide mutex.
// Every call increments the returned Session's refcount; callers must
// Release it.
func Acquire(eng engine.Engine) *Session {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionInstance == nil {
		s := &Session{nodeIdentity: newIdentity(KindSession, "session", "process root", nil)}
		s.pipelines = newPipelines(s, eng)
		s.debug = newDebug(s)
		sessionInstance = s
	}
	sessionInstance.Retain()
	return sessionInstance
}

// ReleaseSession drops a reference acquired via Acquire. When the last
// reference is released the singleton is torn down so a later Acquire
// starts fresh (used by tests; a running daemon holds a reference for
// process lifetime and never observes this path).
func ReleaseSession(s *Session) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if s == nil || sessionInstance != s {
		return
	}
	s.Release()
	if s.RefCount() <= 0 {
		sessionInstance = nil
	}
}

// Pipelines returns the owned Pipelines container.
func (s *Session) Pipelines() *Pipelines { return s.pipelines }

// Debug returns the owned Debug node.
func (s *Session) Debug() *Debug { return s.debug }

func (s *Session) lookupChild(ctx context.Context, name string) (Node, bool) {
	switch name {
	case "pipelines":
		return s.pipelines, true
	case "debug":
		return s.debug, true
	default:
		return nil, false
	}
}

func (s *Session) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (s *Session) Read(ctx context.Context) (string, rcode.Code) {
	out, err := renderContainer(s.name, []Node{s.pipelines, s.debug})
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (s *Session) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (s *Session) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (s *Session) ToString(ctx context.Context) (string, rcode.Code) {
	return s.Read(ctx)
}

var _ Node = (*Session)(nil)
var _ childLookup = (*Session)(nil)
