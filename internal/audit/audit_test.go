// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package audit

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	ledger, err := Open()
	require.NoError(t, err)
	defer ledger.Close()

	require.NoError(t, ledger.Record(Event{Type: EventNodeCreated, Path: "/pipelines/p0", Actor: "client"}))
	require.NoError(t, ledger.Record(Event{Type: EventNodeDeleted, Path: "/pipelines/p0", Actor: "client"}))

	events, err := ledger.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, EventNodeCreated, events[0].Type)
	require.Equal(t, EventNodeDeleted, events[1].Type)
}

func TestRecentRespectsLimit(t *testing.T) {
	ledger, err := Open()
	require.NoError(t, err)
	defer ledger.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.Record(Event{Type: EventStateChanged, Path: "/pipelines/p0"}))
	}

	events, err := ledger.Recent(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestCloseRemovesTempDir(t *testing.T) {
	ledger, err := Open()
	require.NoError(t, err)
	dir := ledger.dir
	require.NoError(t, ledger.Close())
	_, statErr := os.Stat(dir)
	require.Error(t, statErr)
}
