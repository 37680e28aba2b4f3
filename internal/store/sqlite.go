package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const recordsSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLite is the primary Backend: a single-table key-value record space in a
// local SQLite database. The database is opened lazily on first use; opening
// applies the ensure-exists schema (there is no further migration).
type SQLite struct {
	path string

	once    sync.Once
	conn    *sql.DB
	openErr error
}

// NewSQLite creates a SQLite backend for the database at path. The file is
// not touched until the first operation.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

// open opens the database exactly once and memoizes the result, including
// failure. A backend that failed to open keeps failing so the dual store
// settles on the fallback.
func (s *SQLite) open() (*sql.DB, error) {
	s.once.Do(func() {
		conn, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			s.openErr = fmt.Errorf("store: open db: %w", err)
			return
		}
		if err := conn.Ping(); err != nil {
			conn.Close()
			s.openErr = fmt.Errorf("store: ping: %w", err)
			return
		}
		if _, err := conn.Exec(recordsSchemaSQL); err != nil {
			conn.Close()
			s.openErr = fmt.Errorf("store: apply schema: %w", err)
			return
		}
		s.conn = conn
	})
	return s.conn, s.openErr
}

// Get returns the value stored under key, or absent.
func (s *SQLite) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	conn, err := s.open()
	if err != nil {
		return nil, false, err
	}
	var value string
	err = conn.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// Set upserts value under key, fully replacing any prior record.
func (s *SQLite) Set(ctx context.Context, key string, value json.RawMessage) error {
	conn, err := s.open()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO records (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Delete removes the record for key. Deleting an absent key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	conn, err := s.open()
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection if it was ever opened.
func (s *SQLite) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
