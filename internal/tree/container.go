// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"sync"

	"github.com/ManuGH/pipelined/internal/rcode"
)

// containerCore is embedded by every Node kind that owns a name-indexed,
// ordered collection of children. Its lock serializes create, delete, and
// iteration, and is the one lock that linearizes concurrent creates of the
// same child name.
type containerCore struct {
	mu       sync.Mutex
	children map[string]Node
	order    []string
}

// insert installs node under name if no sibling already holds it. Exactly
// one of any number of concurrent insert calls for the same name succeeds.
func (c *containerCore) insert(name string, node Node) rcode.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.children == nil {
		c.children = make(map[string]Node)
	}
	if _, exists := c.children[name]; exists {
		return rcode.ExistingResource
	}
	c.children[name] = node
	c.order = append(c.order, name)
	return rcode.EOK
}

// remove deletes name from the index and returns the removed Node.
func (c *containerCore) remove(name string) (Node, rcode.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.children[name]
	if !ok {
		return nil, rcode.NoResource
	}
	delete(c.children, name)
	for i, nm := range c.order {
		if nm == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return n, rcode.EOK
}

// get looks up name without removing it.
func (c *containerCore) get(name string) (Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.children[name]
	return n, ok
}

// list returns a snapshot of children in insertion order, held under the
// container lock for the duration of the copy.
func (c *containerCore) list() []Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Node, 0, len(c.order))
	for _, nm := range c.order {
		out = append(out, c.children[nm])
	}
	return out
}

// withLock runs fn while holding the container lock, for callers (e.g. the
// HTTP fast path) that need additional invariants enforced across the
// whole iteration rather than per-entry.
func (c *containerCore) withLock(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}
