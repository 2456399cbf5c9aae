// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tree

import (
	"github.com/ManuGH/pipelined/internal/format"
)

// renderContainer produces the fixed container shape:
// { "name": N, "children": [ {name, description}, ... ] }.
func renderContainer(name string, children []Node) (string, error) {
	f := format.New()
	f.BeginObject().
		SetMemberName("name").SetValue(name).
		SetMemberName("children").BeginArray()
	for _, c := range children {
		f.BeginObject().
			SetMemberName("name").SetValue(c.Name()).
			SetMemberName("description").SetValue(c.Description()).
			EndObject()
	}
	f.EndArray().EndObject()
	return f.Generate()
}
