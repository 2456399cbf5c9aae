// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine defines the Engine adapter: the sole interface through
// which the core calls the multimedia backend. Graph construction, element
// instantiation, state transitions, and bus message decoding all live
// behind this façade — the core never depends on backend concurrency
// semantics directly.
package engine

import (
	"context"
	"errors"
	"time"
)

// State is one of the pipeline state values mirrored by a tree State node.
type State string

const (
	StateNull    State = "null"
	StateReady   State = "ready"
	StatePaused  State = "paused"
	StatePlaying State = "playing"
)

// SyncMode reports whether a state change completed synchronously.
type SyncMode int

const (
	Sync SyncMode = iota
	Async
)

// QueryStatus reports the outcome of a QueryState call.
type QueryStatus int

const (
	StatusOK QueryStatus = iota
	StatusAsync
	StatusFailed
)

// Handle identifies a backend pipeline or element. It is opaque to callers.
type Handle string

// PropertyType enumerates the scalar kinds a Property leaf may carry.
type PropertyType string

const (
	PropString PropertyType = "string"
	PropInt    PropertyType = "int"
	PropUint   PropertyType = "uint"
	PropBool   PropertyType = "bool"
	PropFloat  PropertyType = "float"
	PropDouble PropertyType = "double"
	PropEnum   PropertyType = "enum"
)

// PropertySchema describes one property exposed by an element.
type PropertySchema struct {
	Name        string
	Type        PropertyType
	Description string
	Access      string // "readable", "writable", "readwrite"
}

// ActionSchema describes one callable action exposed by an element.
type ActionSchema struct {
	Name      string
	Arguments []string
	Return    string
}

// ErrIterationFailed is returned by an element iterator when the backend's
// resync protocol has been exhausted (capped at 10 attempts).
var ErrIterationFailed = errors.New("engine: element iteration failed after resync cap")

// ErrNoMessage is returned by BusPop when no message arrives before the
// supplied timeout.
var ErrNoMessage = errors.New("engine: no bus message within timeout")

// BusMessage is one message popped off a pipeline's bus.
type BusMessage struct {
	Type    string
	Payload map[string]any
}

// ElementIterator yields elements discovered via introspection,
// transparently retrying on a backend-signaled resync up to a bounded cap.
type ElementIterator interface {
	// Next returns the next element's handle and backend-assigned name,
	// or ok=false at end of iteration. It returns ErrIterationFailed if
	// resync attempts are exhausted.
	Next(ctx context.Context) (handle Handle, name string, ok bool, err error)
}

// Engine is the abstract façade over the multimedia backend.
// Implementations must be safe for concurrent use on distinct handles; all
// blocking calls honor ctx cancellation/timeout.
type Engine interface {
	// BuildPipeline parses a textual pipeline description and constructs
	// the backend graph, returning a handle or a translated error.
	BuildPipeline(ctx context.Context, description string) (Handle, error)

	// SetState requests a pipeline state transition.
	SetState(ctx context.Context, h Handle, state State) (SyncMode, error)

	// QueryState reports the pipeline's current and pending state within
	// timeout.
	QueryState(ctx context.Context, h Handle, timeout time.Duration) (current, pending State, status QueryStatus, err error)

	// IterateElements returns an iterator over the pipeline's elements.
	IterateElements(ctx context.Context, h Handle) (ElementIterator, error)

	// ListProperties returns the property schema for an element.
	ListProperties(ctx context.Context, element Handle) ([]PropertySchema, error)

	// ListSignals returns the signal names exposed by an element.
	ListSignals(ctx context.Context, element Handle) ([]string, error)

	// ListActions returns the action schema for an element.
	ListActions(ctx context.Context, element Handle) ([]ActionSchema, error)

	// EmitAction invokes a named action on an element.
	EmitAction(ctx context.Context, element Handle, name string, args []string) (any, error)

	// GetProperty reads a property's current value.
	GetProperty(ctx context.Context, element Handle, name string) (any, error)

	// SetProperty writes a property's value.
	SetProperty(ctx context.Context, element Handle, name string, value string) error

	// SendEvent injects a named event (eos, flush_start, flush_stop) into
	// the pipeline graph.
	SendEvent(ctx context.Context, h Handle, kind string) error

	// BusPop waits up to timeout for a message matching typeMask (empty
	// matches any type).
	BusPop(ctx context.Context, h Handle, timeout time.Duration, typeMask string) (BusMessage, error)

	// Destroy releases all backend resources associated with h.
	Destroy(ctx context.Context, h Handle) error
}
