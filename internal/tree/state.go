// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"time"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// stateQueryTimeout bounds State.Read's call into the Engine: a real
// timeout rather than a zero-timeout/no-wait query, which misreports
// during async transitions.
const stateQueryTimeout = 100 * time.Millisecond

// State is a leaf Node whose value mirrors the Engine pipeline's state.
// A transition to playing/paused increments the owning Pipeline's
// play-hold refcount; a transition to null decrements it.
type State struct {
	nodeIdentity
	eng      engine.Engine
	handle   engine.Handle
	pipeline *Pipeline
}

func newState(parent *Pipeline, eng engine.Engine, handle engine.Handle) *State {
	return &State{
		nodeIdentity: newIdentity(KindState, "state", "pipeline playback state", parent),
		eng:          eng,
		handle:       handle,
		pipeline:     parent,
	}
}

func (s *State) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (s *State) Read(ctx context.Context) (string, rcode.Code) {
	current, pending, status, err := s.eng.QueryState(ctx, s.handle, stateQueryTimeout)
	if err != nil {
		return "", rcode.Timeout
	}
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(s.name).
		SetMemberName("value").SetValue(string(current)).
		SetMemberName("pending").SetValue(string(pending)).
		SetMemberName("async").SetValue(status == engine.StatusAsync).
		EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

var validStates = map[string]engine.State{
	"null":    engine.StateNull,
	"ready":   engine.StateReady,
	"paused":  engine.StatePaused,
	"playing": engine.StatePlaying,
}

// Update requests a transition (the pipeline_play/pipeline_pause/
// pipeline_stop shorthands resolve to this), adjusting the owning
// Pipeline's play-hold refcount to match. The hold is taken exactly once
// on leaving the null state and dropped exactly once on returning to it,
// so lateral moves between playing and paused neither take nor drop an
// extra hold and the refcount stays balanced across arbitrary transition
// sequences.
func (s *State) Update(ctx context.Context, value string) rcode.Code {
	target, ok := validStates[value]
	if !ok {
		return rcode.BadValue
	}

	current, _, _, err := s.eng.QueryState(ctx, s.handle, stateQueryTimeout)
	if err != nil {
		return rcode.Timeout
	}

	if _, err := s.eng.SetState(ctx, s.handle, target); err != nil {
		return rcode.BadValue
	}

	switch {
	case current == engine.StateNull && target != engine.StateNull:
		s.pipeline.takePlayHold()
	case current != engine.StateNull && target == engine.StateNull:
		s.pipeline.dropPlayHold()
	}
	return rcode.EOK
}

func (s *State) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (s *State) ToString(ctx context.Context) (string, rcode.Code) {
	return s.Read(ctx)
}

var _ Node = (*State)(nil)
