// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package parser

import (
	"context"
	"testing"

	"github.com/ManuGH/pipelined/internal/engine"
	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/ManuGH/pipelined/internal/tree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURIForm(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
		code rcode.Code
	}{
		{
			name: "create with description",
			line: "create /pipelines p0 fakesrc ! fakesink",
			want: Command{Verb: VerbCreate, Path: "/pipelines", Name: "p0", Operand: "fakesrc ! fakesink"},
			code: rcode.EOK,
		},
		{
			name: "read bare path",
			line: "read /pipelines",
			want: Command{Verb: VerbRead, Path: "/pipelines"},
			code: rcode.EOK,
		},
		{
			name: "update with value",
			line: "update /pipelines/p0/state playing",
			want: Command{Verb: VerbUpdate, Path: "/pipelines/p0/state", Name: "playing"},
			code: rcode.EOK,
		},
		{
			name: "delete named child",
			line: "delete /pipelines p0",
			want: Command{Verb: VerbDelete, Path: "/pipelines", Name: "p0"},
			code: rcode.EOK,
		},
		{
			name: "trailing newline tolerated",
			line: "read /pipelines\n",
			want: Command{Verb: VerbRead, Path: "/pipelines"},
			code: rcode.EOK,
		},
		{
			name: "trailing nul tolerated",
			line: "read /pipelines\x00",
			want: Command{Verb: VerbRead, Path: "/pipelines"},
			code: rcode.EOK,
		},
		{
			name: "surrounding whitespace tolerated",
			line: "  read /pipelines  ",
			want: Command{Verb: VerbRead, Path: "/pipelines"},
			code: rcode.EOK,
		},
		{
			name: "operand tokens joined by single spaces",
			line: "create /pipelines p0 fakesrc   !    fakesink",
			want: Command{Verb: VerbCreate, Path: "/pipelines", Name: "p0", Operand: "fakesrc ! fakesink"},
			code: rcode.EOK,
		},
		{name: "empty input", line: "", code: rcode.BadCommand},
		{name: "whitespace only", line: "   \n", code: rcode.BadCommand},
		{name: "unknown verb", line: "frobnicate /pipelines", code: rcode.BadCommand},
		{name: "verb without path", line: "read", code: rcode.BadCommand},
		{name: "relative path rejected", line: "read pipelines", code: rcode.BadCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, code := Parse(tt.line)
			require.Equal(t, tt.code, code)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseShorthandForm(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"pipeline_create p0 fakesrc ! fakesink", Command{Verb: VerbCreate, Path: "/pipelines", Name: "p0", Operand: "fakesrc ! fakesink"}},
		{"pipeline_delete p0", Command{Verb: VerbDelete, Path: "/pipelines", Name: "p0"}},
		{"pipeline_play p0", Command{Verb: VerbUpdate, Path: "/pipelines/p0/state", Name: "playing"}},
		{"pipeline_pause p0", Command{Verb: VerbUpdate, Path: "/pipelines/p0/state", Name: "paused"}},
		{"pipeline_stop p0", Command{Verb: VerbUpdate, Path: "/pipelines/p0/state", Name: "null"}},
		{"element_set p0 fakesrc0 is-live true", Command{Verb: VerbUpdate, Path: "/pipelines/p0/elements/fakesrc0/properties/is-live", Name: "true"}},
		{"element_get p0 fakesrc0 is-live", Command{Verb: VerbRead, Path: "/pipelines/p0/elements/fakesrc0/properties/is-live"}},
		{"list_pipelines", Command{Verb: VerbRead, Path: "/pipelines"}},
		{"list_elements p0", Command{Verb: VerbRead, Path: "/pipelines/p0/elements"}},
		{"bus_read p0", Command{Verb: VerbRead, Path: "/pipelines/p0/bus"}},
		{"bus_filter p0 eos error", Command{Verb: VerbUpdate, Path: "/pipelines/p0/bus/filter", Name: "eos error"}},
		{"bus_timeout p0 5000", Command{Verb: VerbUpdate, Path: "/pipelines/p0/bus/timeout", Name: "5000"}},
		{"event_eos p0", Command{Verb: VerbCreate, Path: "/pipelines/p0/event", Name: "eos", Operand: "injected event"}},
		{"signal_connect p0 fakesrc0 handoff", Command{Verb: VerbCreate, Path: "/pipelines/p0/elements/fakesrc0/signals", Name: "handoff", Operand: "connected signal"}},
		{"signal_timeout p0 fakesrc0 handoff 30", Command{Verb: VerbUpdate, Path: "/pipelines/p0/elements/fakesrc0/signals/handoff", Name: "30"}},
		{"action_emit p0 fakesink0 emit-eos", Command{Verb: VerbUpdate, Path: "/pipelines/p0/elements/fakesink0/actions/emit-eos"}},
		{"debug_enable true", Command{Verb: VerbUpdate, Path: "/debug/enable", Name: "true"}},
		{"debug_color false", Command{Verb: VerbUpdate, Path: "/debug/color", Name: "false"}},
		{"debug_threshold trace", Command{Verb: VerbUpdate, Path: "/debug/threshold", Name: "trace"}},
		{"debug_reset", Command{Verb: VerbUpdate, Path: "/debug", Name: "reset"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, code := Parse(tt.line)
			require.Equal(t, rcode.EOK, code)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("expansion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseShorthandMissingArgs(t *testing.T) {
	for _, line := range []string{
		"pipeline_create p0",
		"pipeline_play",
		"element_set p0 fakesrc0 is-live",
		"element_get p0 fakesrc0",
		"bus_timeout p0",
		"signal_connect p0 fakesrc0",
		"debug_enable",
	} {
		_, code := Parse(line)
		assert.Equal(t, rcode.BadValue, code, "line %q", line)
	}
}

func TestParseBytesNil(t *testing.T) {
	_, code := ParseBytes(nil)
	require.Equal(t, rcode.NullArgument, code)
}

func TestDispatchRoundTrip(t *testing.T) {
	s := tree.Acquire(engine.NewFake())
	t.Cleanup(func() { tree.ReleaseSession(s) })
	d := NewDispatcher(s, nil)
	ctx := context.Background()

	code, _ := d.Execute(ctx, []byte("pipeline_create p0 fakesrc ! fakesink"))
	require.Equal(t, rcode.EOK, code)

	code, _ = d.Execute(ctx, []byte("pipeline_play p0"))
	require.Equal(t, rcode.EOK, code)

	code, out := d.Execute(ctx, []byte("read /pipelines/p0/state"))
	require.Equal(t, rcode.EOK, code)
	assert.Contains(t, out, `"playing"`)

	// element_get after element_set returns the written value.
	code, _ = d.Execute(ctx, []byte("element_set p0 fakesrc0 is-live true"))
	require.Equal(t, rcode.EOK, code)
	code, out = d.Execute(ctx, []byte("element_get p0 fakesrc0 is-live"))
	require.Equal(t, rcode.EOK, code)
	assert.Contains(t, out, `"value":true`)

	code, _ = d.Execute(ctx, []byte("pipeline_stop p0"))
	require.Equal(t, rcode.EOK, code)
	code, _ = d.Execute(ctx, []byte("pipeline_delete p0"))
	require.Equal(t, rcode.EOK, code)
}

func TestDispatchErrors(t *testing.T) {
	s := tree.Acquire(engine.NewFake())
	t.Cleanup(func() { tree.ReleaseSession(s) })
	d := NewDispatcher(s, nil)
	ctx := context.Background()

	code, _ := d.Execute(ctx, []byte("read /pipelines/ghost"))
	require.Equal(t, rcode.NoResource, code)

	code, _ = d.Execute(ctx, []byte("create /pipelines/ghost x y"))
	require.Equal(t, rcode.NoResource, code)

	code, _ = d.Execute(ctx, []byte("update /pipelines x"))
	require.Equal(t, rcode.BadCommand, code)

	code, _ = d.Execute(ctx, []byte(""))
	require.Equal(t, rcode.BadCommand, code)

	code, _ = d.Execute(ctx, nil)
	require.Equal(t, rcode.NullArgument, code)
}
