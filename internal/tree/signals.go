// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Signals is the container of an Element's signal connections. Its Read
// lists the signal names the Engine exposes; Create connects a named
// signal (the signal_connect shorthand), installing a Signal leaf whose
// wait timeout is mutable via signal_timeout. Delete disconnects.
type Signals struct {
	nodeIdentity
	containerCore
	eng    engine.Engine
	handle engine.Handle
	synced sync.Once
	names  []string
}

func newSignals(parent Node, eng engine.Engine, handle engine.Handle) *Signals {
	return &Signals{nodeIdentity: newIdentity(KindSignals, "signals", "element signal connections", parent), eng: eng, handle: handle}
}

func (s *Signals) sync(ctx context.Context) {
	s.synced.Do(func() {
		names, err := s.eng.ListSignals(ctx, s.handle)
		if err == nil {
			s.names = names
		}
	})
}

func (s *Signals) lookupChild(ctx context.Context, name string) (Node, bool) {
	return s.get(name)
}

// Create connects the named signal if the Engine exposes it.
func (s *Signals) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	if !validName(name) {
		return nil, rcode.BadValue
	}
	s.sync(ctx)
	known := false
	for _, n := range s.names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return nil, rcode.BadValue
	}
	sig := newSignal(s, name)
	if code := s.insert(name, sig); code != rcode.EOK {
		return nil, code
	}
	return sig, rcode.EOK
}

func (s *Signals) Read(ctx context.Context) (string, rcode.Code) {
	s.sync(ctx)
	connected := map[string]bool{}
	for _, c := range s.list() {
		connected[c.Name()] = true
	}
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(s.name).
		SetMemberName("signals").BeginArray()
	for _, n := range s.names {
		f.BeginObject().
			SetMemberName("name").SetValue(n).
			SetMemberName("connected").SetValue(connected[n]).
			EndObject()
	}
	f.EndArray().EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (s *Signals) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (s *Signals) Delete(ctx context.Context, name string) rcode.Code {
	_, code := s.remove(name)
	return code
}

func (s *Signals) ToString(ctx context.Context) (string, rcode.Code) {
	return s.Read(ctx)
}

var _ Node = (*Signals)(nil)
var _ childLookup = (*Signals)(nil)

// defaultSignalTimeout is the timeout a newly connected Signal holds until
// signal_timeout changes it. Read reports the stored value; no read waits
// for an emission.
const defaultSignalTimeout = 5 * time.Second

// Signal is one connected signal on an element. Its timeout (seconds, -1
// for the default) is mutable via Update, serving the signal_timeout
// shorthand.
type Signal struct {
	nodeIdentity
	mu      sync.Mutex
	timeout time.Duration
}

func newSignal(parent Node, name string) *Signal {
	return &Signal{
		nodeIdentity: newIdentity(KindSignal, name, "connected signal", parent),
		timeout:      defaultSignalTimeout,
	}
}

func (s *Signal) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (s *Signal) Read(ctx context.Context) (string, rcode.Code) {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(s.name).
		SetMemberName("timeout").SetValue(timeout.Seconds()).
		EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (s *Signal) Update(ctx context.Context, value string) rcode.Code {
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return rcode.BadValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if secs < 0 {
		s.timeout = defaultSignalTimeout
		return rcode.EOK
	}
	s.timeout = time.Duration(secs) * time.Second
	return rcode.EOK
}

func (s *Signal) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (s *Signal) ToString(ctx context.Context) (string, rcode.Code) {
	return s.Read(ctx)
}

var _ Node = (*Signal)(nil)
