// Package store implements the local durable key-value store used for
// drafts, session snapshots, and per-novel reader state.
//
// The store is dual-backend: an indexed SQLite database is preferred, with
// a flat JSON-file directory as fallback. Any primary-backend failure is
// absorbed by falling back for that single operation; if both backends are
// unavailable the operation is dropped silently. Callers never see storage
// errors, which means the only symptom of persistence problems is a draft
// that does not reappear later. That trade-off is deliberate: the in-memory
// state stays the source of truth until the next successful flush.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Backend is a single key-value record space. Writes fully replace the
// prior value for a key; there is no merge and no cross-key atomicity.
type Backend interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
}

// Store is the dual-backend durable store. Concurrent writers to the same
// key are last-write-wins; no locking is provided.
type Store struct {
	primary  Backend // may be nil when the environment has no database
	fallback *Files
	logger   *slog.Logger
}

// New creates a Store over the given backends. primary may be nil, in which
// case every operation goes straight to the fallback; fallback may be nil
// only in degenerate environments, in which case reads report absent and
// writes are dropped.
func New(primary Backend, fallback *Files, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{primary: primary, fallback: fallback, logger: logger}
}

// Fallback exposes the file backend for consumers that need synchronous raw
// access (the session cache) or the watch directory.
func (s *Store) Fallback() *Files {
	return s.fallback
}

// Get loads the value stored under key into dest. It reports whether a
// value was present and decoded; storage failures are absorbed and read as
// absent.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	raw, ok := s.getRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("store: decode failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// GetRaw is Get without decoding.
func (s *Store) GetRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	return s.getRaw(ctx, key)
}

func (s *Store) getRaw(ctx context.Context, key string) (json.RawMessage, bool) {
	if key == "" {
		return nil, false
	}
	if s.primary != nil {
		raw, ok, err := s.primary.Get(ctx, key)
		if err == nil {
			return raw, ok
		}
		s.logger.Debug("store: primary get failed, using fallback",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if s.fallback == nil {
		return nil, false
	}
	raw, ok, err := s.fallback.Get(ctx, key)
	if err != nil {
		s.logger.Warn("store: fallback get failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return raw, ok
}

// Set stores value under key, fully replacing any prior record. Values must
// be JSON-serializable; anything else is dropped.
func (s *Store) Set(ctx context.Context, key string, value any) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("store: encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	s.SetRaw(ctx, key, raw)
}

// SetRaw is Set for an already-encoded value.
func (s *Store) SetRaw(ctx context.Context, key string, raw json.RawMessage) {
	if key == "" {
		return
	}
	if s.primary != nil {
		err := s.primary.Set(ctx, key, raw)
		if err == nil {
			return
		}
		s.logger.Debug("store: primary set failed, using fallback",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	if s.fallback == nil {
		return
	}
	if err := s.fallback.Set(ctx, key, raw); err != nil {
		s.logger.Warn("store: fallback set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Delete removes the record for key from whichever backend holds it.
func (s *Store) Delete(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if s.primary != nil {
		if err := s.primary.Delete(ctx, key); err != nil {
			s.logger.Debug("store: primary delete failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	if s.fallback == nil {
		return
	}
	// Delete from both: a record may have landed in the fallback during an
	// earlier primary outage.
	if err := s.fallback.Delete(ctx, key); err != nil {
		s.logger.Warn("store: fallback delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
