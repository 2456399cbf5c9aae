// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"strings"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Action is a leaf Node representing a named callable on an Engine
// element. Update invokes the action via EmitAction, splitting value on
// whitespace into positional arguments; the action_emit shorthand
// dispatches here.
type Action struct {
	nodeIdentity
	schema engine.ActionSchema
	eng    engine.Engine
	handle engine.Handle
}

func newAction(parent Node, schema engine.ActionSchema, eng engine.Engine, handle engine.Handle) *Action {
	return &Action{
		nodeIdentity: newIdentity(KindAction, schema.Name, "element action", parent),
		schema:       schema,
		eng:          eng,
		handle:       handle,
	}
}

func (a *Action) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (a *Action) Read(ctx context.Context) (string, rcode.Code) {
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(a.name).
		SetMemberName("arguments").BeginArray()
	for _, arg := range a.schema.Arguments {
		f.SetValue(arg)
	}
	f.EndArray().
		SetMemberName("return").SetValue(a.schema.Return).
		EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (a *Action) Update(ctx context.Context, value string) rcode.Code {
	var args []string
	if value != "" {
		args = strings.Fields(value)
	}
	if _, err := a.eng.EmitAction(ctx, a.handle, a.schema.Name, args); err != nil {
		return rcode.BadValue
	}
	return rcode.EOK
}

func (a *Action) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (a *Action) ToString(ctx context.Context) (string, rcode.Code) {
	return a.Read(ctx)
}

var _ Node = (*Action)(nil)
