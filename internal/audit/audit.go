// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package audit records object-tree lifecycle events (create, delete, state
// transition) to a process-lifetime embedded ledger, and emits the same
// events as structured WHO/WHAT/WHEN log lines for operators tailing logs.
// The ledger lives in a temp directory wiped at process start and is never
// a source of truth for tree state — it exists purely for forensics.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ManuGH/pipelined/internal/log"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// EventType names the kind of lifecycle event being recorded.
type EventType string

const (
	EventNodeCreated    EventType = "node.created"
	EventNodeDeleted    EventType = "node.deleted"
	EventStateChanged   EventType = "node.state_changed"
	EventPlayHoldTaken  EventType = "pipeline.play_hold.taken"
	EventPlayHoldDropped EventType = "pipeline.play_hold.dropped"
)

// Event is one recorded lifecycle occurrence.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Path      string    `json:"path"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail"`
	RequestID string    `json:"request_id,omitempty"`
}

// Ledger persists Events to an embedded, process-lifetime badger store and
// additionally mirrors them to the structured logger.
type Ledger struct {
	db     *badger.DB
	logger zerolog.Logger
	seq    uint64
	dir    string
}

// Open creates a fresh temp-directory badger store for the process
// lifetime. Callers must call Close on shutdown; the directory is removed
// at that point.
func Open() (*Ledger, error) {
	dir, err := os.MkdirTemp("", "pipelined-audit-*")
	if err != nil {
		return nil, fmt.Errorf("audit: creating temp dir: %w", err)
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("audit: opening ledger: %w", err)
	}

	return &Ledger{
		db:     db,
		logger: log.WithComponent("audit"),
		dir:    dir,
	}, nil
}

// Close releases the badger store and removes its temp directory.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	_ = os.RemoveAll(l.dir)
	return err
}

// Record appends event to the ledger and mirrors it to the structured log.
func (l *Ledger) Record(e Event) error {
	if l == nil {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.logger.Info().
		Str("event_type", string(e.Type)).
		Str("path", e.Path).
		Str("actor", e.Actor).
		Str("detail", e.Detail).
		Str("request_id", e.RequestID).
		Msg("audit event")

	if l == nil || l.db == nil {
		return nil
	}

	l.seq++
	key := []byte(fmt.Sprintf("%020d", l.seq))
	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshaling event: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Recent returns up to limit most-recently recorded events, newest last.
func (l *Ledger) Recent(limit int) ([]Event, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	var events []Event
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var e Event
				if err := json.Unmarshal(val, &e); err != nil {
					return err
				}
				events = append(events, e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}
