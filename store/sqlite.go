package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the production embedded Store implementation, backed by
// the teacher's pure-Go SQLite driver (modernc.org/sqlite, no CGO). Unlike
// the teacher's SQLiteStore[S], which keyed rows by (run_id, step) for a
// single workflow-state use case, this store holds the single
// `kv(key, value)` table that every durableflow facade (journal, state,
// workflow metadata, timers, status index) scans through the key encoder
// in keys.go.
//
// Connection setup (WAL mode, single writer, busy timeout) mirrors the
// teacher's NewSQLiteStore verbatim, since SQLite's single-writer model is
// unchanged by what the rows mean.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed embedded
// store at path. Use ":memory:" for an ephemeral in-process database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// SQLite supports exactly one writer at a time; pooling beyond that
	// only adds lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	// WITHOUT ROWID keeps the table clustered by key, so range scans over
	// `key` walk the B-tree in the byte order the spec's scan contract
	// requires without a secondary index.
	const schema = `
		CREATE TABLE IF NOT EXISTS kv (
			key   BLOB PRIMARY KEY,
			value BLOB NOT NULL
		) WITHOUT ROWID
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv(key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("store: put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Scan(ctx context.Context, prefix []byte) (Iterator, error) {
	return s.ScanRange(ctx, prefix, PrefixEnd(prefix))
}

func (s *SQLiteStore) ScanRange(ctx context.Context, start, end []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var rows *sql.Rows
	var err error
	if end == nil {
		rows, err = s.db.QueryContext(ctx, "SELECT key, value FROM kv WHERE key >= ? ORDER BY key ASC", start)
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key ASC", start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan: %w", err)
	}

	// Materialize the result set so the scan is a point-in-time snapshot
	// (see spec §9 "snapshot vs read-through scans"): holding rows open
	// across a write would serialize on SQLite's single writer anyway, so
	// snapshotting costs nothing extra here and gives callers a simpler
	// contract to reason about.
	defer rows.Close()
	entries := make([]Entry, 0, 64)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan rows: %w", err)
	}
	return &sliceIterator{entries: entries, pos: -1}, nil
}

func (s *SQLiteStore) Batch(ctx context.Context, ops []Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: batch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO kv(key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
				op.Key, op.Value); err != nil {
				return fmt.Errorf("store: batch put: %w", err)
			}
		case OpDelete:
			if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", op.Key); err != nil {
				return fmt.Errorf("store: batch delete: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: batch commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
