// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/yukti/internal/memory"
)

// ErrSessionNotFound is returned when a session has no stored exchanges.
var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	user_text      TEXT NOT NULL,
	assistant_text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, created_at);
`

// =============================================================================
// STORE
// =============================================================================

// Store is an append-only log of exchanges keyed by session.
// It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// SessionMeta summarizes one stored session.
type SessionMeta struct {
	ID        string    `json:"id"`
	Exchanges int       `json:"exchanges"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
	Preview   string    `json:"preview"`
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores one exchange for sessionID.
func (s *Store) Append(ctx context.Context, sessionID string, ex memory.Exchange) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, session_id, created_at, user_text, assistant_text) VALUES (?, ?, ?, ?, ?)`,
		"ex_"+uuid.NewString(), sessionID, ex.Timestamp.UnixNano(), ex.User, ex.Assistant,
	)
	if err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	return nil
}

// History returns the most recent limit exchanges of sessionID, oldest first.
// A limit of zero or less returns all of them.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]memory.Exchange, error) {
	query := `SELECT created_at, user_text, assistant_text FROM (
		SELECT rowid, created_at, user_text, assistant_text FROM exchanges
		WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
	) ORDER BY created_at ASC, rowid ASC`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []memory.Exchange
	for rows.Next() {
		var (
			nanos int64
			ex    memory.Exchange
		)
		if err := rows.Scan(&nanos, &ex.User, &ex.Assistant); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Timestamp = time.Unix(0, nanos)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Transcript loads every exchange of sessionID. It returns ErrSessionNotFound
// when nothing is stored for it.
func (s *Store) Transcript(ctx context.Context, sessionID string) (*Transcript, error) {
	exchanges, err := s.History(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return &Transcript{SessionID: sessionID, Exchanges: exchanges}, nil
}

// Sessions lists stored sessions, most recently active first.
func (s *Store) Sessions(ctx context.Context) ([]SessionMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.session_id, COUNT(*), MIN(e.created_at), MAX(e.created_at),
			(SELECT f.user_text FROM exchanges f WHERE f.session_id = e.session_id
			 ORDER BY f.created_at ASC, f.rowid ASC LIMIT 1)
		FROM exchanges e
		GROUP BY e.session_id
		ORDER BY MAX(e.created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionMeta
	for rows.Next() {
		var (
			meta        SessionMeta
			first, last int64
			question    string
		)
		if err := rows.Scan(&meta.ID, &meta.Exchanges, &first, &last, &question); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		meta.Preview = preview(question)
		meta.FirstAt = time.Unix(0, first)
		meta.LastAt = time.Unix(0, last)
		out = append(out, meta)
	}
	return out, rows.Err()
}

// DeleteSession removes every exchange of id. Deleting an unknown session
// returns ErrSessionNotFound.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}
