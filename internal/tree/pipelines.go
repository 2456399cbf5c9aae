// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"

	"github.com/ManuGH/pipelined/internal/audit"
	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/metrics"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Pipelines is the container owning all live Pipeline nodes.
type Pipelines struct {
	nodeIdentity
	containerCore
	engine engine.Engine
	ledger *audit.Ledger
}

func newPipelines(parent Node, eng engine.Engine) *Pipelines {
	return &Pipelines{nodeIdentity: newIdentity(KindPipelines, "pipelines", "live pipeline collection", parent), engine: eng}
}

// SetLedger attaches an optional audit ledger; nil is safe (audit.Ledger's
// Record is a no-op on a nil receiver).
func (p *Pipelines) SetLedger(l *audit.Ledger) { p.ledger = l }

func (p *Pipelines) lookupChild(ctx context.Context, name string) (Node, bool) {
	return p.get(name)
}

// WithChildren runs fn over the current child set while holding the
// container lock for the full iteration, for the /pipelines/status fast
// path.
func (p *Pipelines) WithChildren(fn func(children []Node)) {
	p.withLock(func() {
		children := make([]Node, 0, len(p.order))
		for _, nm := range p.order {
			children = append(children, p.children[nm])
		}
		fn(children)
	})
}

// Create delegates graph construction to the Engine; on Engine failure the
// partially-constructed Node is released and BAD_COMMAND is returned with
// no visible side effects.
func (p *Pipelines) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	if !validName(name) {
		return nil, rcode.BadValue
	}
	if description == "" {
		return nil, rcode.NullArgument
	}

	handle, err := p.engine.BuildPipeline(ctx, description)
	if err != nil {
		return nil, rcode.BadCommand
	}

	pipeline := newPipeline(p, name, description, p.engine, handle)
	code := p.insert(name, pipeline)
	if code != rcode.EOK {
		// Release the partially-constructed backend resource; no
		// visible side effect remains.
		_ = p.engine.Destroy(ctx, handle)
		return nil, code
	}

	metrics.PipelineCount.Inc()
	if p.ledger != nil {
		_ = p.ledger.Record(audit.Event{Type: audit.EventNodeCreated, Path: "/pipelines/" + name, Actor: "client", Detail: description})
	}
	return pipeline, rcode.EOK
}

func (p *Pipelines) Read(ctx context.Context) (string, rcode.Code) {
	out, err := renderContainer(p.name, p.list())
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (p *Pipelines) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

// Delete removes the named pipeline. A pipeline with an outstanding
// play-hold (i.e. not in the null state) cannot be deleted while running.
func (p *Pipelines) Delete(ctx context.Context, name string) rcode.Code {
	node, ok := p.get(name)
	if !ok {
		return rcode.NoResource
	}
	pipeline := node.(*Pipeline)
	if pipeline.PlayHoldCount() > 0 {
		return rcode.NoUpdate
	}

	if _, code := p.remove(name); code != rcode.EOK {
		return code
	}
	_ = p.engine.Destroy(ctx, pipeline.handle)
	metrics.PipelineCount.Dec()
	if p.ledger != nil {
		_ = p.ledger.Record(audit.Event{Type: audit.EventNodeDeleted, Path: "/pipelines/" + name, Actor: "client"})
	}
	return rcode.EOK
}

func (p *Pipelines) ToString(ctx context.Context) (string, rcode.Code) {
	return p.Read(ctx)
}

var _ Node = (*Pipelines)(nil)
var _ childLookup = (*Pipelines)(nil)
