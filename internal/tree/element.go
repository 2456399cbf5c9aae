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

// Element owns a Properties container and a Signals/Actions container,
// plus a non-owning handle into the Engine.
type Element struct {
	nodeIdentity
	engineHandle engine.Handle
	eng          engine.Engine

	lazyMu     sync.Mutex
	properties *Properties
	signals    *Signals
	actions    *Actions
}

func newElement(parent Node, name string, handle engine.Handle, eng engine.Engine) *Element {
	return &Element{
		nodeIdentity: newIdentity(KindElement, name, "discovered element", parent),
		engineHandle: handle,
		eng:          eng,
	}
}

func (e *Element) ensureChildren() {
	e.lazyMu.Lock()
	defer e.lazyMu.Unlock()
	if e.properties == nil {
		e.properties = newProperties(e, e.eng, e.engineHandle)
	}
	if e.signals == nil {
		e.signals = newSignals(e, e.eng, e.engineHandle)
	}
	if e.actions == nil {
		e.actions = newActions(e, e.eng, e.engineHandle)
	}
}

func (e *Element) lookupChild(ctx context.Context, name string) (Node, bool) {
	e.ensureChildren()
	switch name {
	case "properties":
		return e.properties, true
	case "signals":
		return e.signals, true
	case "actions":
		return e.actions, true
	default:
		return nil, false
	}
}

func (e *Element) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (e *Element) Read(ctx context.Context) (string, rcode.Code) {
	e.ensureChildren()
	out, err := renderContainer(e.name, []Node{e.properties, e.signals, e.actions})
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (e *Element) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (e *Element) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (e *Element) ToString(ctx context.Context) (string, rcode.Code) {
	return e.Read(ctx)
}

var _ Node = (*Element)(nil)
var _ childLookup = (*Element)(nil)
