// Package session maintains the persisted auth session snapshot that gates
// editorial surfaces and attributes actions.
//
// The snapshot lives under one reserved key in the fallback (file) backend
// only: readers need a synchronous snapshot with no suspension point, which
// rules out the database backend. Mutations are last-writer-wins across
// processes with no locking.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/malaztl/nocturne/internal/store"
)

// User is the profile half of the session snapshot.
type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// Session is the persisted token + profile bundle. Created on login,
// replaced on re-login, deleted on logout.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// IsAdmin reports whether the session belongs to an admin account.
func (s *Session) IsAdmin() bool {
	return s != nil && s.User.Role == "admin"
}

// Cache is the read-through snapshot cache over the session key. It is
// constructed once per process; all access goes through Read, Save, Clear,
// and Subscribe.
//
// Read caches the last-seen raw record and its parsed result and re-parses
// only when the raw bytes change, so consumers that detect change by
// reference see a stable pointer while nothing changed.
type Cache struct {
	files  *store.Files
	logger *slog.Logger

	mu      sync.Mutex
	raw     string
	haveRaw bool
	parsed  *Session

	subs   map[int]func()
	nextID int
}

// NewCache creates the session cache over the fallback backend. files may
// be nil in degenerate environments; every read is then nil.
func NewCache(files *store.Files, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{files: files, logger: logger, subs: make(map[int]func())}
}

// Read returns the current session snapshot, or nil when absent or
// unparsable. Two consecutive reads with no intervening write return the
// same pointer.
func (c *Cache) Read() *Session {
	if c.files == nil {
		return nil
	}
	raw, ok := c.files.ReadRaw(store.SessionKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ok == c.haveRaw && raw == c.raw {
		return c.parsed
	}
	c.raw = raw
	c.haveRaw = ok

	if !ok {
		c.parsed = nil
		return nil
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		c.logger.Warn("session: corrupt snapshot", slog.String("error", err.Error()))
		c.parsed = nil
		return nil
	}
	c.parsed = &s
	return c.parsed
}

// Save persists a new snapshot and notifies in-process subscribers. The
// writing process does not receive its own cross-process event in time for
// UI updates, so the local notification is part of the write contract.
func (c *Cache) Save(s Session) {
	if c.files == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("session: encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.files.WriteRaw(store.SessionKey, raw); err != nil {
		c.logger.Warn("session: write failed", slog.String("error", err.Error()))
		return
	}
	c.notify()
}

// Clear deletes the snapshot and notifies in-process subscribers.
func (c *Cache) Clear() {
	if c.files == nil {
		return
	}
	if err := c.files.Delete(context.Background(), store.SessionKey); err != nil {
		c.logger.Warn("session: clear failed", slog.String("error", err.Error()))
		return
	}
	c.notify()
}

// Subscribe registers fn to run whenever the session may have changed,
// from either a local write or a foreign-process event. The returned
// function removes the subscription.
func (c *Cache) Subscribe(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// HandleStoreEvent feeds a cross-process change notification into the
// cache. Subscribers fire only when the changed key is the session key, or
// when no key information is available.
func (c *Cache) HandleStoreEvent(key string) {
	if key != "" && key != store.SessionKey {
		return
	}
	c.notify()
}

func (c *Cache) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
