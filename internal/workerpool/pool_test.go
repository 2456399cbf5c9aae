// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSubmitRunsTask(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(2, 2)

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	p.Stop()
}

func TestOverflowFailsImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, 1)

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	// Occupy the single worker.
	require.NoError(t, p.Submit(func() { defer wg.Done(); <-block }))
	// Give the worker time to pick the task up, then fill the queue slot.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Submit(func() {}))

	// Queue full: failure must be immediate, not blocking.
	start := time.Now()
	err := p.Submit(func() {})
	require.ErrorIs(t, err, ErrPoolFull)
	require.Less(t, time.Since(start), 100*time.Millisecond)

	close(block)
	wg.Wait()
	p.Stop()
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(2, 8)

	var completed atomic.Int64
	for i := 0; i < 8; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(5 * time.Millisecond)
			completed.Add(1)
		}))
	}
	p.Stop()
	require.Equal(t, int64(8), completed.Load())
}

func TestSubmitAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, 1)
	p.Stop()
	require.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1, 1)
	p.Stop()
	p.Stop()
}
