// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildAndSetState(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	h, err := f.BuildPipeline(ctx, "fakesrc ! fakesink")
	require.NoError(t, err)

	mode, err := f.SetState(ctx, h, StatePlaying)
	require.NoError(t, err)
	require.Equal(t, Sync, mode)

	cur, _, status, err := f.QueryState(ctx, h, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StatePlaying, cur)
	require.Equal(t, StatusOK, status)
}

func TestBuildEmptyDescriptionFails(t *testing.T) {
	f := NewFake()
	_, err := f.BuildPipeline(context.Background(), "")
	require.Error(t, err)
}

func TestIterateElements(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	h, err := f.BuildPipeline(ctx, "fakesrc ! fakesink")
	require.NoError(t, err)

	it, err := f.IterateElements(ctx, h)
	require.NoError(t, err)

	var names []string
	for {
		_, name, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, name)
	}
	require.Equal(t, []string{"fakesrc0", "fakesink0"}, names)
}

func TestPropertyGetSet(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	h, err := f.BuildPipeline(ctx, "fakesrc ! fakesink")
	require.NoError(t, err)

	it, err := f.IterateElements(ctx, h)
	require.NoError(t, err)
	eh, _, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.SetProperty(ctx, eh, "is-live", "true"))
	v, err := f.GetProperty(ctx, eh, "is-live")
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestBusPopTimeout(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	h, err := f.BuildPipeline(ctx, "fakesrc ! fakesink")
	require.NoError(t, err)

	_, err = f.BusPop(ctx, h, 10*time.Millisecond, "")
	require.ErrorIs(t, err, ErrNoMessage)
}

func TestBusPopReceivesPostedMessage(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	h, err := f.BuildPipeline(ctx, "fakesrc ! fakesink")
	require.NoError(t, err)

	require.NoError(t, f.PostMessage(h, BusMessage{Type: "eos"}))
	msg, err := f.BusPop(ctx, h, 100*time.Millisecond, "")
	require.NoError(t, err)
	require.Equal(t, "eos", msg.Type)
}

func TestDestroyRemovesPipeline(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	h, err := f.BuildPipeline(ctx, "fakesrc ! fakesink")
	require.NoError(t, err)
	require.NoError(t, f.Destroy(ctx, h))

	_, _, _, err = f.QueryState(ctx, h, time.Millisecond)
	require.Error(t, err)
}
