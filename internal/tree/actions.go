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

// Actions is the container owning an Element's Action leaves, populated
// from the Engine's action schema on first read.
type Actions struct {
	nodeIdentity
	containerCore
	eng    engine.Engine
	handle engine.Handle
	synced sync.Once
}

func newActions(parent Node, eng engine.Engine, handle engine.Handle) *Actions {
	return &Actions{nodeIdentity: newIdentity(KindActions, "actions", "element action collection", parent), eng: eng, handle: handle}
}

func (a *Actions) sync(ctx context.Context) {
	a.synced.Do(func() {
		schemas, err := a.eng.ListActions(ctx, a.handle)
		if err != nil {
			return
		}
		for _, s := range schemas {
			act := newAction(a, s, a.eng, a.handle)
			a.insert(s.Name, act)
		}
	})
}

func (a *Actions) lookupChild(ctx context.Context, name string) (Node, bool) {
	a.sync(ctx)
	return a.get(name)
}

func (a *Actions) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (a *Actions) Read(ctx context.Context) (string, rcode.Code) {
	a.sync(ctx)
	out, err := renderContainer(a.name, a.list())
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (a *Actions) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (a *Actions) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (a *Actions) ToString(ctx context.Context) (string, rcode.Code) {
	return a.Read(ctx)
}

var _ Node = (*Actions)(nil)
var _ childLookup = (*Actions)(nil)
