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

// EventFactory is the Pipeline's event injection node. Creating
// a child named after an event kind (the event_eos shorthand resolves to
// `create /pipelines/P/event eos`) sends that event into the Engine graph;
// no child Node is retained afterwards, so the factory always renders the
// set of kinds it accepts rather than past emissions.
type EventFactory struct {
	nodeIdentity
	eng    engine.Engine
	handle engine.Handle
}

var eventKinds = []string{"eos", "flush_start", "flush_stop"}

func newEventFactory(parent Node, eng engine.Engine, handle engine.Handle) *EventFactory {
	return &EventFactory{
		nodeIdentity: newIdentity(KindEvent, "event", "pipeline event injection", parent),
		eng:          eng,
		handle:       handle,
	}
}

func (e *EventFactory) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	if name == "" {
		return nil, rcode.NullArgument
	}
	if err := e.eng.SendEvent(ctx, e.handle, name); err != nil {
		return nil, rcode.BadValue
	}
	return e, rcode.EOK
}

func (e *EventFactory) Read(ctx context.Context) (string, rcode.Code) {
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(e.name).
		SetMemberName("kinds").BeginArray()
	for _, k := range eventKinds {
		f.SetValue(k)
	}
	f.EndArray().EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (e *EventFactory) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (e *EventFactory) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (e *EventFactory) ToString(ctx context.Context) (string, rcode.Code) {
	return e.Read(ctx)
}

var _ Node = (*EventFactory)(nil)
