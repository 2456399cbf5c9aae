// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"sync"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/metrics"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Pipeline owns an Elements container, a Bus node, a State node, and a
// reference to the Engine's pipeline handle. Its Elements/Bus/
// State children are constructed lazily on first resolution.
type Pipeline struct {
	nodeIdentity
	engine engine.Engine
	handle engine.Handle

	lazyMu   sync.Mutex
	elements *Elements
	bus      *Bus
	state    *State
	event    *EventFactory

	playHoldMu    sync.Mutex
	playHoldCount int64
}

func newPipeline(parent Node, name, description string, eng engine.Engine, handle engine.Handle) *Pipeline {
	return &Pipeline{
		nodeIdentity: newIdentity(KindPipeline, name, description, parent),
		engine:       eng,
		handle:       handle,
	}
}

// Handle returns the Engine handle backing this pipeline.
func (p *Pipeline) Handle() engine.Handle { return p.handle }

// QueryStateFast reports the pipeline's current Engine state for the
// lightweight status listing, collapsing query failure to null.
func (p *Pipeline) QueryStateFast(ctx context.Context) engine.State {
	current, _, _, err := p.engine.QueryState(ctx, p.handle, stateQueryTimeout)
	if err != nil {
		return engine.StateNull
	}
	return current
}

func (p *Pipeline) ensureChildren() {
	p.lazyMu.Lock()
	defer p.lazyMu.Unlock()
	if p.elements == nil {
		p.elements = newElements(p, p.engine, p.handle)
	}
	if p.bus == nil {
		p.bus = newBus(p, p.engine, p.handle)
	}
	if p.state == nil {
		p.state = newState(p, p.engine, p.handle)
	}
	if p.event == nil {
		p.event = newEventFactory(p, p.engine, p.handle)
	}
}

func (p *Pipeline) lookupChild(ctx context.Context, name string) (Node, bool) {
	p.ensureChildren()
	switch name {
	case "elements":
		return p.elements, true
	case "bus":
		return p.bus, true
	case "state":
		return p.state, true
	case "event":
		return p.event, true
	default:
		return nil, false
	}
}

// PlayHoldCount reports the current play-hold refcount.
func (p *Pipeline) PlayHoldCount() int64 {
	p.playHoldMu.Lock()
	defer p.playHoldMu.Unlock()
	return p.playHoldCount
}

// takePlayHold increments the refcount when the State transitions to a
// playing/paused value.
func (p *Pipeline) takePlayHold() {
	p.playHoldMu.Lock()
	defer p.playHoldMu.Unlock()
	p.playHoldCount++
	metrics.PlayHoldRefcount.Inc()
}

// dropPlayHold decrements the refcount when the State transitions to null.
// It never goes below zero: a null->null no-op transition is not a hold
// release.
func (p *Pipeline) dropPlayHold() {
	p.playHoldMu.Lock()
	defer p.playHoldMu.Unlock()
	if p.playHoldCount > 0 {
		p.playHoldCount--
		metrics.PlayHoldRefcount.Dec()
	}
}

func (p *Pipeline) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (p *Pipeline) Read(ctx context.Context) (string, rcode.Code) {
	p.ensureChildren()
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(p.name).
		SetMemberName("description").SetValue(p.description).
		SetMemberName("children").BeginArray()
	for _, c := range []Node{p.elements, p.bus, p.state, p.event} {
		f.BeginObject().
			SetMemberName("name").SetValue(c.Name()).
			SetMemberName("description").SetValue(c.Description()).
			EndObject()
	}
	f.EndArray().EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (p *Pipeline) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (p *Pipeline) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (p *Pipeline) ToString(ctx context.Context) (string, rcode.Code) {
	return p.Read(ctx)
}

var _ Node = (*Pipeline)(nil)
var _ childLookup = (*Pipeline)(nil)
