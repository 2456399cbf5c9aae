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

// Properties is the container owning an Element's Property leaves,
// populated from the Engine's property schema on first read.
type Properties struct {
	nodeIdentity
	containerCore
	eng    engine.Engine
	handle engine.Handle
	synced sync.Once
}

func newProperties(parent Node, eng engine.Engine, handle engine.Handle) *Properties {
	return &Properties{nodeIdentity: newIdentity(KindProperties, "properties", "element property collection", parent), eng: eng, handle: handle}
}

func (p *Properties) sync(ctx context.Context) {
	p.synced.Do(func() {
		schemas, err := p.eng.ListProperties(ctx, p.handle)
		if err != nil {
			return
		}
		for _, s := range schemas {
			prop := newProperty(p, s, p.eng, p.handle)
			p.insert(s.Name, prop)
		}
	})
}

func (p *Properties) lookupChild(ctx context.Context, name string) (Node, bool) {
	p.sync(ctx)
	return p.get(name)
}

func (p *Properties) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (p *Properties) Read(ctx context.Context) (string, rcode.Code) {
	p.sync(ctx)
	out, err := renderContainer(p.name, p.list())
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (p *Properties) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (p *Properties) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (p *Properties) ToString(ctx context.Context) (string, rcode.Code) {
	return p.Read(ctx)
}

var _ Node = (*Properties)(nil)
var _ childLookup = (*Properties)(nil)
