// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package envelope renders the wire envelope shared by both transports:
// {"code": <int>, "description": "<text>", "response": <payload-or-null>}.
package envelope

import (
	"encoding/json"

	"github.com/ManuGH/pipelined/internal/format"
	"github.com/ManuGH/pipelined/internal/rcode"
)

// Render produces the envelope bytes for one response. payload, when
// non-empty, must already be valid JSON (every Node render is); it is
// embedded verbatim rather than re-encoded.
func Render(code rcode.Code, payload string) []byte {
	f := format.New()
	f.BeginObject().
		SetMemberName("code").SetValue(code.Int()).
		SetMemberName("description").SetValue(code.String())
	if payload == "" {
		f.SetMemberName("response").SetValue(nil)
	} else {
		f.SetMemberName("response").SetValue(json.RawMessage(payload))
	}
	f.EndObject()
	return []byte(f.MustGenerate())
}
