// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package format builds structured response documents the way Node.Read /
// Node.ToString render a tree node: nested objects and arrays of typed
// scalars, produced incrementally and rendered once via Generate. A
// Formatter is instantiated per response; it is never shared across
// requests.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// frame is one level of nesting currently open on the builder stack.
type frame struct {
	isArray  bool
	obj      map[string]any // only used when !isArray
	keys     []string       // preserves member-order for obj
	arr      []any          // only used when isArray
	nextName string         // pending member name set by SetMemberName
}

// Formatter is the structured-output builder behind every Node render. All
// methods are valid only while the document is open; Generate closes it.
type Formatter struct {
	stack []*frame
	root  any
	done  bool
}

// New returns a fresh, empty Formatter.
func New() *Formatter {
	return &Formatter{}
}

func (f *Formatter) top() *frame {
	if len(f.stack) == 0 {
		return nil
	}
	return f.stack[len(f.stack)-1]
}

// BeginObject opens a new object, nested under the current container if any.
func (f *Formatter) BeginObject() *Formatter {
	fr := &frame{obj: map[string]any{}}
	f.push(fr)
	return f
}

// EndObject closes the most recently opened object.
func (f *Formatter) EndObject() *Formatter {
	f.pop(ordered{keys: f.top().keys, obj: f.top().obj})
	return f
}

// BeginArray opens a new array, nested under the current container if any.
func (f *Formatter) BeginArray() *Formatter {
	fr := &frame{isArray: true}
	f.push(fr)
	return f
}

// EndArray closes the most recently opened array.
func (f *Formatter) EndArray() *Formatter {
	f.pop(append([]any{}, f.top().arr...))
	return f
}

// SetMemberName records the member name the next SetValue/Begin* call
// attaches to, valid only while the current container is an object.
func (f *Formatter) SetMemberName(name string) *Formatter {
	t := f.top()
	if t == nil || t.isArray {
		return f
	}
	t.nextName = name
	return f
}

// SetValue appends a typed scalar (string, bool, integer, float, or nil) to
// the current container, attaching it to the pending member name when the
// container is an object.
func (f *Formatter) SetValue(v any) *Formatter {
	t := f.top()
	if t == nil {
		f.root = v
		f.done = true
		return f
	}
	f.place(t, v)
	return f
}

func (f *Formatter) place(t *frame, v any) {
	if t.isArray {
		t.arr = append(t.arr, v)
		return
	}
	name := t.nextName
	if _, exists := t.obj[name]; !exists {
		t.keys = append(t.keys, name)
	}
	t.obj[name] = v
	t.nextName = ""
}

func (f *Formatter) push(fr *frame) {
	f.stack = append(f.stack, fr)
}

// pop closes the top frame and places its rendered value into the parent
// container (or the document root if the stack is now empty).
func (f *Formatter) pop(value any) {
	f.stack = f.stack[:len(f.stack)-1]
	if len(f.stack) == 0 {
		f.root = value
		f.done = true
		return
	}
	f.place(f.top(), value)
}

// ordered preserves JSON member order as recorded, independent of Go map
// iteration order, by carrying the insertion-order key slice alongside the
// map.
type ordered struct {
	keys []string
	obj  map[string]any
}

func (o ordered) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.obj[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Generate emits the accumulated document as a UTF-8 JSON string owned by
// the caller (RFC 8259: no trailing commas, strings escaped, numbers and
// booleans unquoted).
func (f *Formatter) Generate() (string, error) {
	if !f.done {
		return "", fmt.Errorf("format: document not closed")
	}
	b, err := json.Marshal(f.root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MustGenerate panics on marshal failure; safe to use once the caller has
// only ever fed the builder JSON-marshalable scalars, which every Node
// implementation in this repository guarantees.
func (f *Formatter) MustGenerate() string {
	s, err := f.Generate()
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the accumulated document as a json.RawMessage-compatible
// any, for embedding directly into an envelope without a re-parse.
func (f *Formatter) Raw() (json.RawMessage, error) {
	if !f.done {
		return nil, fmt.Errorf("format: document not closed")
	}
	return json.Marshal(f.root)
}
