// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package envelope

import (
	"testing"

	"github.com/ManuGH/pipelined/internal/rcode"
	"github.com/stretchr/testify/require"
)

func TestRenderWithPayload(t *testing.T) {
	out := Render(rcode.EOK, `{"name":"p0"}`)
	require.JSONEq(t, `{"code":0,"description":"OK","response":{"name":"p0"}}`, string(out))
}

func TestRenderWithoutPayload(t *testing.T) {
	out := Render(rcode.NoResource, "")
	require.JSONEq(t, `{"code":3,"description":"no such resource","response":null}`, string(out))
}
