// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tree implements the hierarchical, named object tree of pipeline
// control objects: the Session root, its Pipelines/Debug children, and the
// Pipeline/Elements/Element/Bus/State subtree, all exposed through a
// uniform create/read/update/delete/to_string verb set.
package tree

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/ManuGH/pipelined/internal/rcode"
)

// Kind tags the concrete type of a Node.
type Kind string

const (
	KindSession    Kind = "session"
	KindPipelines  Kind = "pipelines"
	KindPipeline   Kind = "pipeline"
	KindElements   Kind = "elements"
	KindElement    Kind = "element"
	KindProperties Kind = "properties"
	KindProperty   Kind = "property"
	KindSignals    Kind = "signals"
	KindActions    Kind = "actions"
	KindAction     Kind = "action"
	KindBus        Kind = "bus"
	KindEvent      Kind = "event"
	KindSignal     Kind = "signal"
	KindState      Kind = "state"
	KindDebug      Kind = "debug"
)

// Node is the uniform interface every tree object implements. Unsupported
// verbs (e.g. Create on a leaf) return rcode.BadCommand.
type Node interface {
	Kind() Kind
	Name() string
	Description() string
	Parent() Node
	Retain()
	Release()
	RefCount() int64

	Create(ctx context.Context, name, description string) (Node, rcode.Code)
	Read(ctx context.Context) (string, rcode.Code)
	Update(ctx context.Context, value string) rcode.Code
	Delete(ctx context.Context, name string) rcode.Code
	ToString(ctx context.Context) (string, rcode.Code)
}

// childLookup is implemented by Nodes that can be walked past during path
// resolution, i.e. every Node with a (possibly fixed, possibly dynamic)
// child index. Leaves with no children do not implement it.
type childLookup interface {
	lookupChild(ctx context.Context, name string) (Node, bool)
}

// nodeIdentity is embedded by every concrete Node type. It supplies the
// identity and refcount fields every Node carries, without
// participating in verb dispatch — each concrete type defines its own
// Create/Read/Update/Delete/ToString, since Go's embedding does not give
// virtual dispatch back into an embedded base.
type nodeIdentity struct {
	kind        Kind
	name        string
	description string
	parent      Node
	refcount    atomic.Int64
}

func newIdentity(kind Kind, name, description string, parent Node) nodeIdentity {
	return nodeIdentity{kind: kind, name: name, description: description, parent: parent}
}

func (n *nodeIdentity) Kind() Kind            { return n.kind }
func (n *nodeIdentity) Name() string          { return n.name }
func (n *nodeIdentity) Description() string   { return n.description }
func (n *nodeIdentity) Parent() Node          { return n.parent }
func (n *nodeIdentity) Retain()               { n.refcount.Add(1) }
func (n *nodeIdentity) Release()              { n.refcount.Add(-1) }
func (n *nodeIdentity) RefCount() int64       { return n.refcount.Load() }

// validName reports whether name satisfies the Node name invariant:
// non-empty and free of the path separator.
func validName(name string) bool {
	return name != "" && !strings.Contains(name, "/")
}

// A Node may expose only a subset of the verb set; the unsupported*
// helpers answer the rest with BadCommand.
func unsupportedCreate(ctx context.Context, name, description string) (Node, rcode.Code) {
	return nil, rcode.BadCommand
}

func unsupportedRead(ctx context.Context) (string, rcode.Code) {
	return "", rcode.BadCommand
}

func unsupportedUpdate(ctx context.Context, value string) rcode.Code {
	return rcode.BadCommand
}

func unsupportedDelete(ctx context.Context, name string) rcode.Code {
	return rcode.BadCommand
}
