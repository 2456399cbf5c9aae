// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type state string
type event string

const (
	sNull    state = "null"
	sPlaying state = "playing"

	ePlay event = "play"
	eStop event = "stop"
)

func TestFireValidTransition(t *testing.T) {
	m, err := New(sNull, []Transition[state, event]{
		{From: sNull, Event: ePlay, To: sPlaying},
		{From: sPlaying, Event: eStop, To: sNull},
	})
	require.NoError(t, err)

	got, err := m.Fire(context.Background(), ePlay)
	require.NoError(t, err)
	require.Equal(t, sPlaying, got)
	require.Equal(t, sPlaying, m.State())
}

func TestFireInvalidTransition(t *testing.T) {
	m, err := New(sNull, []Transition[state, event]{
		{From: sNull, Event: ePlay, To: sPlaying},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eStop)
	require.Error(t, err)
	require.Equal(t, sNull, m.State())
}

func TestGuardRejectsTransition(t *testing.T) {
	m, err := New(sNull, []Transition[state, event]{
		{From: sNull, Event: ePlay, To: sPlaying, Guard: func(ctx context.Context, from state, e event) error {
			return errors.New("rejected")
		}},
	})
	require.NoError(t, err)
	_, err = m.Fire(context.Background(), ePlay)
	require.Error(t, err)
}

func TestDuplicateTransitionRejected(t *testing.T) {
	_, err := New(sNull, []Transition[state, event]{
		{From: sNull, Event: ePlay, To: sPlaying},
		{From: sNull, Event: ePlay, To: sNull},
	})
	require.Error(t, err)
}
