// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history keeps a bounded, in-memory SQL-queryable record of
// recently dispatched commands, exposed read-only via GET /commands/recent.
// It never persists across restarts: the database lives in sqlite's
// ":memory:" mode for the life of the process.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded command dispatch.
type Entry struct {
	ID       int64
	Verb     string
	Path     string
	Code     string
	Duration time.Duration
	At       time.Time
}

// maxRows bounds the table so history never grows unbounded; oldest rows
// are pruned on insert once the limit is exceeded.
const maxRows = 1000

// Store is the in-memory command history.
type Store struct {
	db *sql.DB
}

// Open creates a fresh in-memory sqlite store and its schema.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("history: opening store: %w", err)
	}
	const schema = `CREATE TABLE commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		verb TEXT NOT NULL,
		path TEXT NOT NULL,
		code TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a new command history entry, pruning the oldest rows once
// the table exceeds maxRows.
func (s *Store) Record(ctx context.Context, verb, path, code string, d time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (verb, path, code, duration_ms, at) VALUES (?, ?, ?, ?, ?)`,
		verb, path, code, d.Milliseconds(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("history: recording entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM commands WHERE id NOT IN (
		SELECT id FROM commands ORDER BY id DESC LIMIT ?
	)`, maxRows)
	if err != nil {
		return fmt.Errorf("history: pruning: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > maxRows {
		limit = maxRows
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, verb, path, code, duration_ms, at FROM commands ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durMs int64
		var at string
		if err := rows.Scan(&e.ID, &e.Verb, &e.Path, &e.Code, &durMs, &at); err != nil {
			return nil, fmt.Errorf("history: scanning row: %w", err)
		}
		e.Duration = time.Duration(durMs) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
