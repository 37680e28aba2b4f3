package draft

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/malaztl/nocturne/internal/store"
)

// DefaultQuiescence is the debounce delay between the last mutation and
// the durable write.
const DefaultQuiescence = 500 * time.Millisecond

// Coordinator owns the in-memory working copy of one draft envelope and
// batches rapid mutations into a single durable write per quiescence
// interval. Writes never retry and storage errors never reach the caller;
// the working copy stays authoritative until the next flush.
type Coordinator struct {
	st     *store.Store
	key    string
	delay  time.Duration
	logger *slog.Logger

	// now is replaceable so tests can pin timestamps.
	now func() time.Time

	mu    sync.Mutex
	env   Envelope
	timer *time.Timer
	// gen is bumped by Clear. A pending flush armed before the bump is
	// stale and must not write.
	gen int

	// onSaved, if set, runs after every durable write with the stamped
	// savedAt. Used to publish change events.
	onSaved func(savedAt string)
}

// NewCoordinator creates a coordinator for the given context key. delay <= 0
// selects DefaultQuiescence.
func NewCoordinator(st *store.Store, key string, delay time.Duration, logger *slog.Logger) *Coordinator {
	if delay <= 0 {
		delay = DefaultQuiescence
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		st:     st,
		key:    key,
		delay:  delay,
		logger: logger,
		now:    time.Now,
		env:    DefaultEnvelope(),
	}
}

// OnSaved registers a callback invoked after each durable write.
func (c *Coordinator) OnSaved(fn func(savedAt string)) {
	c.mu.Lock()
	c.onSaved = fn
	c.mu.Unlock()
}

// Load hydrates the working copy from the store exactly once, on mount.
// Absent or corrupt records leave the defaults in place.
func (c *Coordinator) Load(ctx context.Context) {
	var env Envelope
	if !c.st.Get(ctx, c.key, &env) {
		return
	}
	env.normalize()

	c.mu.Lock()
	c.env = env
	c.mu.Unlock()
	c.logger.Debug("draft: hydrated", slog.String("key", c.key), slog.String("saved_at", env.SavedAt))
}

// Snapshot returns a copy of the current working state.
func (c *Coordinator) Snapshot() Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env
}

// Update applies a mutation to the working copy and (re)arms the
// quiescence timer. Only when the timer fires without being reset does one
// write of the full envelope reach the store.
func (c *Coordinator) Update(mutate func(*Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mutate(&c.env)
	c.env.normalize()

	if c.timer == nil {
		gen := c.gen
		c.timer = time.AfterFunc(c.delay, func() { c.flush(gen) })
		return
	}
	c.timer.Reset(c.delay)
}

// flush commits the working copy, stamped with the current time. The write
// happens under the lock so it is serialized against Clear, and a flush
// armed before the last Clear is discarded.
func (c *Coordinator) flush(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.env.SavedAt = c.now().UTC().Format(time.RFC3339)
	env := c.env
	onSaved := c.onSaved
	c.st.Set(context.Background(), c.key, env)
	c.mu.Unlock()

	c.logger.Debug("draft: flushed", slog.String("key", c.key), slog.String("saved_at", env.SavedAt))
	if onSaved != nil {
		onSaved(env.SavedAt)
	}
}

// Flush commits any pending mutation immediately. Used at shutdown so a
// quiescence window in flight is not lost.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	pending := c.timer != nil && c.timer.Stop()
	gen := c.gen
	c.mu.Unlock()
	if pending {
		c.flush(gen)
	}
}

// Clear deletes the draft and resets the working copy to defaults,
// synchronously, with no timer involved. The delete happens under the lock
// so a concurrent flush cannot land after it.
func (c *Coordinator) Clear(ctx context.Context) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.env = DefaultEnvelope()
	c.st.Delete(ctx, c.key)
	c.mu.Unlock()

	c.logger.Debug("draft: cleared", slog.String("key", c.key))
}

// SaveDocument writes the rich-text document fields immediately, without
// debounce. The working copy stays authoritative for everything else: a
// form mutation still inside its quiescence window is committed together
// with the document, never rolled back to the stored envelope.
func (c *Coordinator) SaveDocument(ctx context.Context, document []byte) {
	now := c.now().UTC().Format(time.RFC3339)

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.env.Document = document
	c.env.DocumentSavedAt = now
	c.env.SavedAt = now
	env := c.env
	onSaved := c.onSaved
	c.st.Set(ctx, c.key, env)
	c.mu.Unlock()

	if onSaved != nil {
		onSaved(env.SavedAt)
	}
}

// HandleStoreEvent reacts to a foreign-process write to this draft's key by
// re-hydrating only the externally-editable document fields. Form fields
// are owned by the local process and are left untouched.
func (c *Coordinator) HandleStoreEvent(ctx context.Context, key string) {
	if key != c.key {
		return
	}
	var env Envelope
	if !c.st.Get(ctx, c.key, &env) {
		return
	}

	c.mu.Lock()
	if env.DocumentSavedAt != c.env.DocumentSavedAt {
		c.env.Document = env.Document
		c.env.DocumentSavedAt = env.DocumentSavedAt
	}
	c.mu.Unlock()
}
