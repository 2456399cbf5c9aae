// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Property is a leaf Node with a typed value backed by an Engine element.
// Read renders {name, value, param:{description,type,access}}; Update
// writes a new value through the Engine.
type Property struct {
	nodeIdentity
	schema engine.PropertySchema
	eng    engine.Engine
	handle engine.Handle
}

func newProperty(parent Node, schema engine.PropertySchema, eng engine.Engine, handle engine.Handle) *Property {
	return &Property{
		nodeIdentity: newIdentity(KindProperty, schema.Name, schema.Description, parent),
		schema:       schema,
		eng:          eng,
		handle:       handle,
	}
}

func (p *Property) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (p *Property) Read(ctx context.Context) (string, rcode.Code) {
	value, err := p.eng.GetProperty(ctx, p.handle, p.schema.Name)
	if err != nil {
		return "", rcode.NoResource
	}
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(p.name).
		SetMemberName("value").SetValue(value).
		SetMemberName("param").BeginObject().
		SetMemberName("description").SetValue(p.schema.Description).
		SetMemberName("type").SetValue(string(p.schema.Type)).
		SetMemberName("access").SetValue(p.schema.Access).
		EndObject().
		EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

// Update writes value through the Engine, translating a rejected value to
// BAD_VALUE.
func (p *Property) Update(ctx context.Context, value string) rcode.Code {
	if value == "" {
		return rcode.NullArgument
	}
	if err := p.eng.SetProperty(ctx, p.handle, p.schema.Name, value); err != nil {
		return rcode.BadValue
	}
	return rcode.EOK
}

func (p *Property) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (p *Property) ToString(ctx context.Context) (string, rcode.Code) {
	return p.Read(ctx)
}

var _ Node = (*Property)(nil)
