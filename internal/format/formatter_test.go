// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatterObjectWithArray(t *testing.T) {
	f := New()
	f.BeginObject().
		SetMemberName("name").SetValue("p0").
		SetMemberName("children").BeginArray()
	f.BeginObject().
		SetMemberName("name").SetValue("e0").
		SetMemberName("description").SetValue("fakesrc").
		EndObject()
	f.EndArray().EndObject()

	out, err := f.Generate()
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"p0","children":[{"name":"e0","description":"fakesrc"}]}`, out)
}

func TestFormatterScalarTypesUnquoted(t *testing.T) {
	f := New()
	f.BeginObject().
		SetMemberName("value").SetValue(42).
		SetMemberName("ok").SetValue(true).
		SetMemberName("ratio").SetValue(1.5).
		SetMemberName("label").SetValue("x").
		EndObject()

	out, err := f.Generate()
	require.NoError(t, err)
	require.JSONEq(t, `{"value":42,"ok":true,"ratio":1.5,"label":"x"}`, out)
}

func TestFormatterPreservesMemberOrder(t *testing.T) {
	f := New()
	f.BeginObject().
		SetMemberName("z").SetValue(1).
		SetMemberName("a").SetValue(2).
		EndObject()
	out, err := f.Generate()
	require.NoError(t, err)
	require.Equal(t, `{"z":1,"a":2}`, out)
}

func TestFormatterGenerateBeforeCloseErrors(t *testing.T) {
	f := New()
	f.BeginObject()
	_, err := f.Generate()
	require.Error(t, err)
}
