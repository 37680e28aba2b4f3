package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// Files is the fallback Backend: one JSON file per key under a flat
// directory. All operations are synchronous and bounded by the small size
// of the payloads. It is also the backend watched for cross-process change
// notification, and the only backend the session cache reads (it needs
// synchronous access).
type Files struct {
	dir string // absolute path to the store directory
}

// NewFiles creates a file-backed store rooted at dir, creating it if needed.
func NewFiles(dir string) (*Files, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	return &Files{dir: abs}, nil
}

// Dir returns the absolute store directory (watched by the change watcher).
func (f *Files) Dir() string {
	return f.dir
}

// fileName maps a key to a safe flat file name. Keys contain characters
// like ':' and '/' that are not portable in file names, so the key is
// percent-encoded before the extension is appended.
func fileName(key string) string {
	return url.PathEscape(key) + fileExt
}

// KeyForFile reverses fileName. ok is false for names that are not store
// records (temp files, foreign files dropped into the directory).
func KeyForFile(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (f *Files) path(key string) string {
	return filepath.Join(f.dir, fileName(key))
}

// Get reads the JSON value stored under key. A record that exists but does
// not parse as JSON is treated as absent and deleted as a repair side
// effect.
func (f *Files) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: read %s: %w", key, err)
	}
	if !json.Valid(data) {
		// Corrupt record: self-heal by removing it.
		_ = os.Remove(f.path(key))
		return nil, false, nil
	}
	return json.RawMessage(data), true, nil
}

// ReadRaw returns the raw stored string without JSON validation. Used by
// the session cache for its change-detection-by-raw-string contract.
// ok is false when the key is absent.
func (f *Files) ReadRaw(key string) (string, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// WriteRaw writes data under key without validation. Test seams and the
// session cache use it; regular writers go through Set.
func (f *Files) WriteRaw(key string, data []byte) error {
	return f.writeAtomic(key, data)
}

// Set stores value under key, fully replacing any prior record.
func (f *Files) Set(_ context.Context, key string, value json.RawMessage) error {
	return f.writeAtomic(key, value)
}

// writeAtomic writes content via tmp file, fsync, and rename so a crashed
// writer never leaves a torn record behind.
func (f *Files) writeAtomic(key string, content []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".nocturne-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the record for key. Deleting an absent key is not an error.
func (f *Files) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// Keys lists every key currently present in the directory.
func (f *Files) Keys() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := KeyForFile(e.Name()); ok {
			out = append(out, key)
		}
	}
	return out, nil
}
