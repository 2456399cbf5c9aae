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

// defaultBusTimeout is the read timeout applied until bus_timeout sets an
// explicit value. Spec §5 requires a bounded wait, never zero-timeout
// polling, which misreports during async transitions.
const defaultBusTimeout = 100 * time.Millisecond

// Bus is the Node for a Pipeline's message bus, with child Nodes for
// read-timeout and message-type filter. Read pops the next matching message
// from the Engine's pending-message queue (the bus_read shorthand).
type Bus struct {
	nodeIdentity
	eng    engine.Engine
	handle engine.Handle

	mu      sync.Mutex
	timeout time.Duration
	filter  string

	timeoutNode *busTimeout
	filterNode  *busFilter
}

func newBus(parent Node, eng engine.Engine, handle engine.Handle) *Bus {
	b := &Bus{
		nodeIdentity: newIdentity(KindBus, "bus", "pipeline message bus", parent),
		eng:          eng,
		handle:       handle,
		timeout:      defaultBusTimeout,
	}
	b.timeoutNode = &busTimeout{nodeIdentity: newIdentity(KindState, "timeout", "bus read timeout in ms", b), bus: b}
	b.filterNode = &busFilter{nodeIdentity: newIdentity(KindState, "filter", "bus message type filter", b), bus: b}
	return b
}

func (b *Bus) lookupChild(ctx context.Context, name string) (Node, bool) {
	switch name {
	case "timeout":
		return b.timeoutNode, true
	case "filter":
		return b.filterNode, true
	default:
		return nil, false
	}
}

func (b *Bus) snapshot() (time.Duration, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeout, b.filter
}

func (b *Bus) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

// Read pops the next bus message matching the current filter within the
// current timeout (the bus_read shorthand).
func (b *Bus) Read(ctx context.Context) (string, rcode.Code) {
	timeout, filter := b.snapshot()
	msg, err := b.eng.BusPop(ctx, b.handle, timeout, filter)
	if err != nil {
		return "", rcode.Timeout
	}
	f := format.New()
	f.BeginObject().
		SetMemberName("type").SetValue(msg.Type).
		SetMemberName("payload").BeginObject()
	for k, v := range msg.Payload {
		f.SetMemberName(k).SetValue(v)
	}
	f.EndObject().EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (b *Bus) Update(ctx context.Context, value string) rcode.Code {
	return unsupportedUpdate(ctx, value)
}

func (b *Bus) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (b *Bus) ToString(ctx context.Context) (string, rcode.Code) {
	return b.Read(ctx)
}

var _ Node = (*Bus)(nil)
var _ childLookup = (*Bus)(nil)

// busTimeout is the bus_timeout leaf.
type busTimeout struct {
	nodeIdentity
	bus *Bus
}

func (t *busTimeout) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (t *busTimeout) Read(ctx context.Context) (string, rcode.Code) {
	d, _ := t.bus.snapshot()
	f := format.New()
	f.BeginObject().SetMemberName("name").SetValue(t.name).SetMemberName("value").SetValue(d.Milliseconds()).EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (t *busTimeout) Update(ctx context.Context, value string) rcode.Code {
	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return rcode.BadValue
	}
	t.bus.mu.Lock()
	t.bus.timeout = time.Duration(ms) * time.Millisecond
	t.bus.mu.Unlock()
	return rcode.EOK
}

func (t *busTimeout) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (t *busTimeout) ToString(ctx context.Context) (string, rcode.Code) {
	return t.Read(ctx)
}

var _ Node = (*busTimeout)(nil)

// busFilter is the bus_filter leaf.
type busFilter struct {
	nodeIdentity
	bus *Bus
}

func (t *busFilter) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (t *busFilter) Read(ctx context.Context) (string, rcode.Code) {
	_, filter := t.bus.snapshot()
	f := format.New()
	f.BeginObject().SetMemberName("name").SetValue(t.name).SetMemberName("value").SetValue(filter).EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (t *busFilter) Update(ctx context.Context, value string) rcode.Code {
	t.bus.mu.Lock()
	t.bus.filter = value
	t.bus.mu.Unlock()
	return rcode.EOK
}

func (t *busFilter) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (t *busFilter) ToString(ctx context.Context) (string, rcode.Code) {
	return t.Read(ctx)
}

var _ Node = (*busFilter)(nil)
