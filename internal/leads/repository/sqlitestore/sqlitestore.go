// Package sqlitestore implements repository.Store on an embedded SQLite file
// for single-node deployments (STORE_DRIVER=sqlite).
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"leadflow_backend/internal/leads/repository"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	display_name        TEXT    NOT NULL,
	channel_address     TEXT    NOT NULL UNIQUE,
	status              TEXT    NOT NULL DEFAULT 'new'
	                    CHECK (status IN ('new', 'in_progress', 'won', 'lost')),
	assigned_agent_id   INTEGER,
	assigned_agent_name TEXT,
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status_created ON leads (status, created_at);
CREATE INDEX IF NOT EXISTS idx_leads_agent_updated ON leads (assigned_agent_id, updated_at);

CREATE TABLE IF NOT EXISTS lead_messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id     INTEGER NOT NULL REFERENCES leads (id),
	direction   TEXT    NOT NULL CHECK (direction IN ('inbound', 'outbound')),
	sender_name TEXT    NOT NULL,
	content     TEXT    NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lead_messages_lead ON lead_messages (lead_id, id);

CREATE TABLE IF NOT EXISTS lead_timeline_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id    INTEGER NOT NULL REFERENCES leads (id),
	kind       TEXT    NOT NULL,
	actor_name TEXT    NOT NULL,
	detail     TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lead_timeline_lead ON lead_timeline_events (lead_id, id);

CREATE TABLE IF NOT EXISTS lead_notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id     INTEGER NOT NULL REFERENCES leads (id),
	author_id   INTEGER NOT NULL,
	author_name TEXT    NOT NULL,
	body        TEXT    NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lead_notes_lead ON lead_notes (lead_id, id);
`

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store keeps timestamps as Unix nanoseconds so ordering and the strictly
// increasing updated_at can be done with integer arithmetic in SQL.
type Store struct {
	db      *sql.DB
	q       dbtx
	inTx    bool
	timeout time.Duration
	now     func() time.Time
}

var _ repository.Store = (*Store)(nil)

// Open creates (or reuses) the database file at path and applies the schema.
// A positive timeout bounds every call that does not already carry a
// deadline.
func Open(ctx context.Context, path string, timeout time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and pragmas below
	// are per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, q: db, timeout: timeout, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Atomic bounds the whole transaction: database/sql rolls it back once the
// deadline passes, so calls made on tx inherit the limit.
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, inTx: true, now: s.now}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 || s.inTx {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) nowNanos() int64 {
	return s.now().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
