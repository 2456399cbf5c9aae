// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCommandsTotalIncrements(t *testing.T) {
	CommandsTotal.Reset()
	CommandsTotal.WithLabelValues("read", "OK").Inc()
	CommandsTotal.WithLabelValues("read", "OK").Inc()

	got := testutil.ToFloat64(CommandsTotal.WithLabelValues("read", "OK"))
	require.Equal(t, float64(2), got)
}

func TestGaugesSettable(t *testing.T) {
	PipelineCount.Set(3)
	require.Equal(t, float64(3), testutil.ToFloat64(PipelineCount))

	WorkerPoolDepth.Set(7)
	require.Equal(t, float64(7), testutil.ToFloat64(WorkerPoolDepth))
}

func TestRegistryGathersWithoutError(t *testing.T) {
	_, err := Registry.Gather()
	require.NoError(t, err)
}
