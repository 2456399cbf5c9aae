// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workerpool implements the fixed-capacity producer/consumer queue
// behind the HTTP server: non-blocking overflow on submit,
// FIFO processing per worker, and a drain-on-shutdown stop that waits for
// queued and in-flight tasks before releasing.
package workerpool

import (
	"errors"
	"sync"

	"github.com/ManuGH/pipelined/internal/log"
	"github.com/ManuGH/pipelined/internal/metrics"
)

// ErrPoolFull is returned by Submit when every queue slot is taken.
var ErrPoolFull = errors.New("workerpool: queue full")

// ErrPoolClosed is returned by Submit after Stop has begun.
var ErrPoolClosed = errors.New("workerpool: stopped")

// Task is one unit of queued work.
type Task func()

// Pool is a bounded worker pool. Workers pull tasks FIFO from a shared
// queue; ordering across workers is not guaranteed.
type Pool struct {
	queue chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a pool with workers goroutines and a queue of capacity slots.
// Non-positive sizes are clamped to 1.
func New(workers, capacity int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{queue: make(chan Task, capacity)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	wpLog := log.WithComponent("workerpool")
	wpLog.Debug().Int("workers", workers).Int("capacity", capacity).Msg("pool started")
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		task()
		metrics.WorkerPoolDepth.Dec()
	}
}

// Submit enqueues task if a slot is free, otherwise fails immediately
// (non-blocking overflow). Callers own cleanup of whatever the task would
// have released (the overflow path must not leak descriptors).
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		metrics.WorkerPoolDepth.Inc()
		return nil
	default:
		metrics.WorkerPoolRejections.Inc()
		return ErrPoolFull
	}
}

// Stop stops accepting new work, waits for all queued and running tasks
// to finish, then returns. It is idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
