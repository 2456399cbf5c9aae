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

// Elements is the container owning a Pipeline's discovered Element nodes.
// Its population comes from Engine introspection rather than client input;
// Create is therefore unsupported and the child set is synced from the
// Engine on first resolution, guarded by sync.Once.
type Elements struct {
	nodeIdentity
	containerCore
	engine engine.Engine
	handle engine.Handle
	synced sync.Once
}

func newElements(parent Node, eng engine.Engine, handle engine.Handle) *Elements {
	return &Elements{nodeIdentity: newIdentity(KindElements, "elements", "pipeline element collection", parent), engine: eng, handle: handle}
}

func (e *Elements) sync(ctx context.Context) {
	e.synced.Do(func() {
		it, err := e.engine.IterateElements(ctx, e.handle)
		if err != nil {
			return
		}
		for {
			h, name, ok, err := it.Next(ctx)
			if err != nil || !ok {
				break
			}
			el := newElement(e, name, h, e.engine)
			e.insert(el.name, el)
		}
	})
}

func (e *Elements) lookupChild(ctx context.Context, name string) (Node, bool) {
	e.sync(ctx)
	return e.get(name)
}

func (e *Elements) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (e *Elements) Read(ctx context.Context) (string, rcode.Code) {
	e.sync(ctx)
	out, err := renderContainer(e.name, e.list())
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (e *Elements) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (e *Elements) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (e *Elements) ToString(ctx context.Context) (string, rcode.Code) {
	return e.Read(ctx)
}

var _ Node = (*Elements)(nil)
var _ childLookup = (*Elements)(nil)
