// Package testutil provides shared test helpers for setting up stores and loggers.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/malaztl/nocturne/internal/store"
)

// Logger returns a quiet structured logger for tests. Only errors are emitted.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Files creates a temporary record directory that is automatically cleaned up.
func Files(t *testing.T) *store.Files {
	t.Helper()
	files, err := store.NewFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return files
}

// Store creates a dual-backend store over a temporary SQLite database and
// record directory, both automatically cleaned up.
func Store(t *testing.T) *store.Store {
	t.Helper()
	files := Files(t)
	sq := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { sq.Close() })
	return store.New(sq, files, Logger())
}

// FilesStore creates a files-only store (no primary backend) over a
// temporary record directory.
func FilesStore(t *testing.T) (*store.Store, *store.Files) {
	t.Helper()
	files := Files(t)
	return store.New(nil, files, Logger()), files
}
