// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"context"
	"strconv"
	"sync"

	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const defaultDebugThreshold = "warning"

var debugThresholds = map[string]bool{
	"none": true, "error": true, "warning": true,
	"info": true, "debug": true, "trace": true,
}

// Debug is the Session's debug configuration node. Its children
// are three leaves — enable, color, threshold — each mutable through the
// uniform update verb (the debug_* shorthands resolve to them). Update on
// the Debug node itself accepts "reset", restoring every setting to its
// default. When a persist path is configured, the last-applied settings
// snapshot is written atomically after each change.
type Debug struct {
	nodeIdentity

	mu          sync.Mutex
	enabled     bool
	color       bool
	threshold   string
	persistPath string

	enable     *debugLeaf
	colorLeaf  *debugLeaf
	threshLeaf *debugLeaf
}

func newDebug(parent Node) *Debug {
	d := &Debug{
		nodeIdentity: newIdentity(KindDebug, "debug", "engine debug configuration", parent),
		color:        true,
		threshold:    defaultDebugThreshold,
	}
	d.enable = &debugLeaf{
		nodeIdentity: newIdentity(KindDebug, "enable", "debug output enabled", d),
		owner:        d,
		get:          func() string { return strconv.FormatBool(d.enabled) },
		set: func(v string) rcode.Code {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return rcode.BadValue
			}
			d.enabled = b
			return rcode.EOK
		},
	}
	d.colorLeaf = &debugLeaf{
		nodeIdentity: newIdentity(KindDebug, "color", "colored debug output", d),
		owner:        d,
		get:          func() string { return strconv.FormatBool(d.color) },
		set: func(v string) rcode.Code {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return rcode.BadValue
			}
			d.color = b
			return rcode.EOK
		},
	}
	d.threshLeaf = &debugLeaf{
		nodeIdentity: newIdentity(KindDebug, "threshold", "debug severity threshold", d),
		owner:        d,
		get:          func() string { return d.threshold },
		set: func(v string) rcode.Code {
			if !debugThresholds[v] {
				return rcode.BadValue
			}
			d.threshold = v
			return rcode.EOK
		},
	}
	return d
}

// SetPersistPath enables atomic persistence of the settings snapshot after
// each applied change. An empty path disables persistence.
func (d *Debug) SetPersistPath(path string) {
	d.mu.Lock()
	d.persistPath = path
	d.mu.Unlock()
}

// Settings is the on-disk shape of the persisted debug snapshot, shared
// with the overrides-file watcher.
type Settings struct {
	Enable    bool   `yaml:"enable"`
	Color     bool   `yaml:"color"`
	Threshold string `yaml:"threshold"`
}

// snapshotLocked must be called with d.mu held.
func (d *Debug) snapshotLocked() Settings {
	return Settings{Enable: d.enabled, Color: d.color, Threshold: d.threshold}
}

// persistLocked must be called with d.mu held.
func (d *Debug) persistLocked() {
	if d.persistPath == "" {
		return
	}
	data, err := yaml.Marshal(d.snapshotLocked())
	if err != nil {
		return
	}
	if err := renameio.WriteFile(d.persistPath, data, 0o644); err != nil {
		l := log.WithComponent("tree")
		l.Warn().Err(err).Str("path", d.persistPath).Msg("debug snapshot persist failed")
	}
}

func (d *Debug) lookupChild(ctx context.Context, name string) (Node, bool) {
	switch name {
	case "enable":
		return d.enable, true
	case "color":
		return d.colorLeaf, true
	case "threshold":
		return d.threshLeaf, true
	default:
		return nil, false
	}
}

func (d *Debug) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (d *Debug) Read(ctx context.Context) (string, rcode.Code) {
	d.mu.Lock()
	s := d.snapshotLocked()
	d.mu.Unlock()
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(d.name).
		SetMemberName("enable").SetValue(s.Enable).
		SetMemberName("color").SetValue(s.Color).
		SetMemberName("threshold").SetValue(s.Threshold).
		EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

// Update accepts "reset", restoring defaults (the debug_reset shorthand).
func (d *Debug) Update(ctx context.Context, value string) rcode.Code {
	if value != "reset" {
		return rcode.BadValue
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	before := d.snapshotLocked()
	d.enabled = false
	d.color = true
	d.threshold = defaultDebugThreshold
	if before == d.snapshotLocked() {
		return rcode.NoUpdate
	}
	d.persistLocked()
	return rcode.EOK
}

func (d *Debug) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (d *Debug) ToString(ctx context.Context) (string, rcode.Code) {
	return d.Read(ctx)
}

var _ Node = (*Debug)(nil)
var _ childLookup = (*Debug)(nil)

// debugLeaf is one mutable setting under the Debug node. Its get/set
// closures run under the owning Debug's lock, and every successful set
// triggers a persist of the full snapshot.
type debugLeaf struct {
	nodeIdentity
	owner *Debug
	get   func() string
	set   func(string) rcode.Code
}

func (l *debugLeaf) Create(ctx context.Context, name, description string) (Node, rcode.Code) {
	return unsupportedCreate(ctx, name, description)
}

func (l *debugLeaf) Read(ctx context.Context) (string, rcode.Code) {
	l.owner.mu.Lock()
	value := l.get()
	l.owner.mu.Unlock()
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(l.name).
		SetMemberName("value").SetValue(value).
		EndObject()
	out, err := f.Generate()
	if err != nil {
		return "", rcode.BadCommand
	}
	return out, rcode.EOK
}

func (l *debugLeaf) Update(ctx context.Context, value string) rcode.Code {
	if value == "" {
		return rcode.NullArgument
	}
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	if l.get() == value {
		return rcode.NoUpdate
	}
	code := l.set(value)
	if code == rcode.EOK {
		l.owner.persistLocked()
	}
	return code
}

func (l *debugLeaf) Delete(ctx context.Context, name string) rcode.Code {
	return unsupportedDelete(ctx, name)
}

func (l *debugLeaf) ToString(ctx context.Context) (string, rcode.Code) {
	return l.Read(ctx)
}

var _ Node = (*debugLeaf)(nil)
