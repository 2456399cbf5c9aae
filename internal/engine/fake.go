// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/pipelined/internal/fsm"
	"github.com/google/uuid"
)

type fsmEvent string

const (
	evToNull    fsmEvent = "to_null"
	evToReady   fsmEvent = "to_ready"
	evToPaused  fsmEvent = "to_paused"
	evToPlaying fsmEvent = "to_playing"
)

func stateTransitions() []fsm.Transition[State, fsmEvent] {
	var ts []fsm.Transition[State, fsmEvent]
	states := []State{StateNull, StateReady, StatePaused, StatePlaying}
	events := map[State]fsmEvent{
		StateNull:    evToNull,
		StateReady:   evToReady,
		StatePaused:  evToPaused,
		StatePlaying: evToPlaying,
	}
	for _, from := range states {
		for _, to := range states {
			if from == to {
				continue
			}
			ts = append(ts, fsm.Transition[State, fsmEvent]{From: from, Event: events[to], To: to})
		}
	}
	return ts
}

// fakeElement models one element discovered on a fake pipeline: a small
// static property schema chosen by its factory name (any `name=value`
// pairs in the description are ignored) plus a mutable property store.
type fakeElement struct {
	mu         sync.Mutex
	handle     Handle
	name       string
	factory    string
	properties map[string]any
}

type fakePipeline struct {
	handle   Handle
	mu       sync.Mutex
	machine  *fsm.Machine[State, fsmEvent]
	elements []*fakeElement
	bus      chan BusMessage
}

// Fake is an in-process reference implementation of Engine used where the
// real multimedia backend is unavailable: it parses a gst-launch-style
// `elem1 ! elem2 ! ...` description into a fixed element chain and answers
// state/property/action calls from in-memory state, without touching any
// actual media hardware.
type Fake struct {
	mu        sync.Mutex
	pipelines map[Handle]*fakePipeline
}

// NewFake returns a ready-to-use Fake engine.
func NewFake() *Fake {
	return &Fake{pipelines: make(map[Handle]*fakePipeline)}
}

func (f *Fake) BuildPipeline(ctx context.Context, description string) (Handle, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("engine: empty pipeline description")
	}
	machine, err := fsm.New(StateNull, stateTransitions())
	if err != nil {
		return "", err
	}

	var elements []*fakeElement
	factoryCounts := map[string]int{}
	for _, part := range strings.Split(description, "!") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			return "", fmt.Errorf("engine: malformed element in description %q", description)
		}
		factory := fields[0]
		elements = append(elements, &fakeElement{
			handle:     Handle(uuid.NewString()),
			name:       fmt.Sprintf("%s%d", factory, factoryCounts[factory]),
			factory:    factory,
			properties: defaultPropertiesFor(factory),
		})
		factoryCounts[factory]++
	}

	h := Handle(uuid.NewString())
	f.mu.Lock()
	f.pipelines[h] = &fakePipeline{
		handle:   h,
		machine:  machine,
		elements: elements,
		bus:      make(chan BusMessage, 32),
	}
	f.mu.Unlock()
	return h, nil
}

func defaultPropertiesFor(factory string) map[string]any {
	switch factory {
	case "fakesrc":
		return map[string]any{"num-buffers": -1, "is-live": false}
	case "fakesink":
		return map[string]any{"sync": true, "silent": true}
	default:
		return map[string]any{}
	}
}

func (f *Fake) pipeline(h Handle) (*fakePipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[h]
	if !ok {
		return nil, fmt.Errorf("engine: unknown pipeline handle")
	}
	return p, nil
}

func (f *Fake) SetState(ctx context.Context, h Handle, state State) (SyncMode, error) {
	p, err := f.pipeline(h)
	if err != nil {
		return Sync, err
	}
	event, ok := map[State]fsmEvent{
		StateNull:    evToNull,
		StateReady:   evToReady,
		StatePaused:  evToPaused,
		StatePlaying: evToPlaying,
	}[state]
	if !ok {
		return Sync, fmt.Errorf("engine: unknown target state %q", state)
	}
	if _, err := p.machine.Fire(ctx, event); err != nil {
		return Sync, err
	}
	return Sync, nil
}

func (f *Fake) QueryState(ctx context.Context, h Handle, timeout time.Duration) (State, State, QueryStatus, error) {
	p, err := f.pipeline(h)
	if err != nil {
		return StateNull, StateNull, StatusFailed, err
	}
	cur := p.machine.State()
	return cur, cur, StatusOK, nil
}

type fakeIterator struct {
	elements []*fakeElement
	idx      int
}

func (it *fakeIterator) Next(ctx context.Context) (Handle, string, bool, error) {
	if it.idx >= len(it.elements) {
		return "", "", false, nil
	}
	e := it.elements[it.idx]
	it.idx++
	return e.handle, e.name, true, nil
}

func (f *Fake) IterateElements(ctx context.Context, h Handle) (ElementIterator, error) {
	p, err := f.pipeline(h)
	if err != nil {
		return nil, err
	}
	return &fakeIterator{elements: p.elements}, nil
}

func (f *Fake) findElement(element Handle) (*fakeElement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pipelines {
		for _, e := range p.elements {
			if e.handle == element {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("engine: unknown element handle")
}

func (f *Fake) ListProperties(ctx context.Context, element Handle) ([]PropertySchema, error) {
	e, err := f.findElement(element)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var schemas []PropertySchema
	for name, val := range e.properties {
		schemas = append(schemas, PropertySchema{
			Name:        name,
			Type:        propertyTypeOf(val),
			Description: fmt.Sprintf("%s property of %s", name, e.factory),
			Access:      "readwrite",
		})
	}
	return schemas, nil
}

func propertyTypeOf(v any) PropertyType {
	switch v.(type) {
	case bool:
		return PropBool
	case int, int64:
		return PropInt
	case uint, uint64:
		return PropUint
	case float32, float64:
		return PropDouble
	default:
		return PropString
	}
}

func (f *Fake) ListSignals(ctx context.Context, element Handle) ([]string, error) {
	if _, err := f.findElement(element); err != nil {
		return nil, err
	}
	return []string{"handoff", "eos"}, nil
}

func (f *Fake) ListActions(ctx context.Context, element Handle) ([]ActionSchema, error) {
	if _, err := f.findElement(element); err != nil {
		return nil, err
	}
	return []ActionSchema{{Name: "emit-eos", Arguments: nil, Return: "void"}}, nil
}

func (f *Fake) EmitAction(ctx context.Context, element Handle, name string, args []string) (any, error) {
	if _, err := f.findElement(element); err != nil {
		return nil, err
	}
	return fmt.Sprintf("invoked %s with %d args", name, len(args)), nil
}

func (f *Fake) GetProperty(ctx context.Context, element Handle, name string) (any, error) {
	e, err := f.findElement(element)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.properties[name]
	if !ok {
		return nil, fmt.Errorf("engine: unknown property %q", name)
	}
	return v, nil
}

func (f *Fake) SetProperty(ctx context.Context, element Handle, name string, value string) error {
	e, err := f.findElement(element)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	current, ok := e.properties[name]
	if !ok {
		e.properties[name] = value
		return nil
	}
	switch current.(type) {
	case bool:
		b, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("engine: invalid bool value %q: %w", value, perr)
		}
		e.properties[name] = b
	case int, int64:
		i, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("engine: invalid int value %q: %w", value, perr)
		}
		e.properties[name] = i
	default:
		e.properties[name] = value
	}
	return nil
}

// SendEvent injects a named event into the graph. The fake surfaces it as
// a bus message of the same type, mirroring how a real backend reports an
// event's effect (an EOS event eventually posts an eos bus message).
func (f *Fake) SendEvent(ctx context.Context, h Handle, kind string) error {
	switch kind {
	case "eos", "flush_start", "flush_stop":
	default:
		return fmt.Errorf("engine: unknown event kind %q", kind)
	}
	return f.PostMessage(h, BusMessage{Type: kind, Payload: map[string]any{"origin": "event"}})
}

func (f *Fake) BusPop(ctx context.Context, h Handle, timeout time.Duration, typeMask string) (BusMessage, error) {
	p, err := f.pipeline(h)
	if err != nil {
		return BusMessage{}, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case msg := <-p.bus:
			if typeMask == "" || msg.Type == typeMask {
				return msg, nil
			}
		case <-timer.C:
			return BusMessage{}, ErrNoMessage
		case <-ctx.Done():
			return BusMessage{}, ctx.Err()
		}
	}
}

// PostMessage is a test/demo affordance letting callers inject a bus
// message for a pipeline, standing in for backend-originated events (e.g.
// an EOS signal).
func (f *Fake) PostMessage(h Handle, msg BusMessage) error {
	p, err := f.pipeline(h)
	if err != nil {
		return err
	}
	select {
	case p.bus <- msg:
		return nil
	default:
		return fmt.Errorf("engine: bus full")
	}
}

func (f *Fake) Destroy(ctx context.Context, h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pipelines[h]; !ok {
		return fmt.Errorf("engine: unknown pipeline handle")
	}
	delete(f.pipelines, h)
	return nil
}

var _ Engine = (*Fake)(nil)
