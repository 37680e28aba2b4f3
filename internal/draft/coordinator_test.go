package draft

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/malaztl/nocturne/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	files, err := store.NewFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return store.New(nil, files, logger)
}

func testCoordinator(t *testing.T, delay time.Duration) (*Coordinator, *store.Store) {
	t.Helper()
	st := testStore(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewCoordinator(st, store.NewNovelDraftKey, delay, logger), st
}

func TestCoordinator_DebounceCoalescing(t *testing.T) {
	c, st := testCoordinator(t, 80*time.Millisecond)

	saved := make(chan string, 8)
	var writes int
	var mu sync.Mutex
	c.OnSaved(func(at string) {
		mu.Lock()
		writes++
		mu.Unlock()
		saved <- at
	})

	began := time.Now().UTC().Truncate(time.Second)

	// Rapid mutations inside the quiescence window.
	titles := []string{"A", "As", "Ash", "Ashen Crown"}
	for _, title := range titles {
		tt := title
		c.Update(func(e *Envelope) { e.Form.Title = tt })
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("no durable write after quiescence")
	}

	mu.Lock()
	got := writes
	mu.Unlock()
	if got != 1 {
		t.Errorf("durable writes = %d, want exactly 1", got)
	}

	var env Envelope
	if !st.Get(context.Background(), store.NewNovelDraftKey, &env) {
		t.Fatal("envelope not in store")
	}
	if env.Form.Title != "Ashen Crown" {
		t.Errorf("title = %q, want state after the last mutation", env.Form.Title)
	}
	savedAt, err := time.Parse(time.RFC3339, env.SavedAt)
	if err != nil {
		t.Fatalf("savedAt %q not RFC3339: %v", env.SavedAt, err)
	}
	if savedAt.Before(began) {
		t.Errorf("savedAt %v precedes the first mutation %v", savedAt, began)
	}
}

func TestCoordinator_LoadHydrates(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	want := DefaultEnvelope()
	want.Form.Title = "Yoru no Uta"
	want.ChapterTitle = "Prologue"
	want.SavedAt = "2026-02-01T08:30:00Z"
	st.Set(ctx, store.NewNovelDraftKey, want)

	c := NewCoordinator(st, store.NewNovelDraftKey, 0, nil)
	c.Load(ctx)

	got := c.Snapshot()
	if got.Form.Title != "Yoru no Uta" || got.ChapterTitle != "Prologue" {
		t.Errorf("hydrated = %+v", got)
	}
}

func TestCoordinator_LoadAbsentKeepsDefaults(t *testing.T) {
	c, _ := testCoordinator(t, 0)
	c.Load(context.Background())

	got := c.Snapshot()
	if got.VolumeNumber != 1 || got.ChapterNumber != 1 || got.Form.Language != "EN" {
		t.Errorf("defaults = %+v", got)
	}
}

func TestCoordinator_LoadCorruptKeepsDefaults(t *testing.T) {
	st := testStore(t)
	_ = st.Fallback().WriteRaw(store.NewNovelDraftKey, []byte("{torn"))

	c := NewCoordinator(st, store.NewNovelDraftKey, 0, nil)
	c.Load(context.Background())

	if got := c.Snapshot(); got.Form.Title != "" || got.VolumeNumber != 1 {
		t.Errorf("corrupt record altered working copy: %+v", got)
	}
}

func TestCoordinator_PartialRecordDefaults(t *testing.T) {
	st := testStore(t)
	// Older record shape: unknown field, missing numbers and language.
	raw := []byte(`{"form":{"title":"Old"},"legacyField":true}`)
	_ = st.Fallback().WriteRaw(store.NewNovelDraftKey, raw)

	c := NewCoordinator(st, store.NewNovelDraftKey, 0, nil)
	c.Load(context.Background())

	got := c.Snapshot()
	if got.Form.Title != "Old" {
		t.Errorf("title = %q", got.Form.Title)
	}
	if got.VolumeNumber != 1 || got.ChapterNumber != 1 || got.Form.Language != "EN" {
		t.Errorf("missing fields did not default: %+v", got)
	}
}

func TestCoordinator_ClearResets(t *testing.T) {
	c, st := testCoordinator(t, 50*time.Millisecond)
	ctx := context.Background()

	c.Update(func(e *Envelope) { e.Form.Title = "Doomed" })
	c.Clear(ctx)

	if got := c.Snapshot(); got.Form.Title != "" {
		t.Errorf("working copy not reset: %+v", got)
	}
	var env Envelope
	if st.Get(ctx, store.NewNovelDraftKey, &env) {
		t.Error("record still present after clear")
	}

	// The cancelled timer must not resurrect the draft.
	time.Sleep(120 * time.Millisecond)
	if st.Get(ctx, store.NewNovelDraftKey, &env) {
		t.Error("pending flush fired after clear")
	}
}

func TestCoordinator_FlushCommitsPending(t *testing.T) {
	c, st := testCoordinator(t, 10*time.Second)
	ctx := context.Background()

	c.Update(func(e *Envelope) { e.Form.Title = "Shutdown" })
	c.Flush()

	var env Envelope
	if !st.Get(ctx, store.NewNovelDraftKey, &env) || env.Form.Title != "Shutdown" {
		t.Errorf("flush did not commit pending state: %+v", env)
	}

	// Flush with nothing pending is a no-op.
	c.Flush()
}

func TestCoordinator_SaveDocumentPreservesForm(t *testing.T) {
	c, st := testCoordinator(t, 0)
	ctx := context.Background()

	// Form fields saved in an earlier run survive a document save.
	env := DefaultEnvelope()
	env.Form.Title = "Kept"
	st.Set(ctx, store.NewNovelDraftKey, env)
	c.Load(ctx)

	doc := json.RawMessage(`[{"type":"p","children":[{"text":"Body"}]}]`)
	c.SaveDocument(ctx, doc)

	var got Envelope
	if !st.Get(ctx, store.NewNovelDraftKey, &got) {
		t.Fatal("envelope missing")
	}
	if got.Form.Title != "Kept" {
		t.Error("document save clobbered form fields")
	}
	if string(got.Document) != string(doc) {
		t.Errorf("document = %s", got.Document)
	}
	if got.DocumentSavedAt == "" {
		t.Error("documentSavedAt not stamped")
	}
}

func TestCoordinator_SaveDocumentKeepsPendingMutation(t *testing.T) {
	c, st := testCoordinator(t, time.Hour)
	ctx := context.Background()

	seed := DefaultEnvelope()
	seed.Form.Title = "Old"
	st.Set(ctx, store.NewNovelDraftKey, seed)
	c.Load(ctx)

	// A form edit still inside its quiescence window must survive an
	// immediate document save, in memory and on disk.
	c.Update(func(e *Envelope) { e.Form.Title = "New" })
	c.SaveDocument(ctx, json.RawMessage(`[{"type":"p","children":[{"text":"Body"}]}]`))

	if got := c.Snapshot().Form.Title; got != "New" {
		t.Errorf("working copy title = %q, want %q", got, "New")
	}

	var stored Envelope
	if !st.Get(ctx, store.NewNovelDraftKey, &stored) {
		t.Fatal("envelope missing after document save")
	}
	if stored.Form.Title != "New" {
		t.Errorf("stored title = %q, want %q", stored.Form.Title, "New")
	}
	if len(stored.Document) == 0 || stored.DocumentSavedAt == "" {
		t.Errorf("document fields not persisted: %+v", stored)
	}
}

func TestCoordinator_StaleFlushDiscardedAfterClear(t *testing.T) {
	c, st := testCoordinator(t, time.Hour)
	ctx := context.Background()

	c.Update(func(e *Envelope) { e.Form.Title = "Doomed" })
	c.Clear(ctx)

	// A timer callback armed before the clear fires late: it must not
	// resurrect the deleted record.
	c.flush(0)

	var env Envelope
	if st.Get(ctx, store.NewNovelDraftKey, &env) {
		t.Fatalf("record resurrected after clear: %+v", env)
	}
	if got := c.Snapshot().Form.Title; got != "" {
		t.Errorf("working copy title = %q after clear", got)
	}
}

func TestCoordinator_FlushObservedByWatcher(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	files, err := store.NewFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(nil, files, logger)
	c := NewCoordinator(st, store.NewNovelDraftKey, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 8)
	go func() {
		_ = store.Watch(ctx, files, logger, func(op, key string) {
			if key == store.NewNovelDraftKey {
				events <- op
			}
		})
	}()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	c.Update(func(e *Envelope) { e.Form.Title = "Ashen Crown" })

	select {
	case op := <-events:
		if op != store.OpSet {
			t.Errorf("op = %q, want %q", op, store.OpSet)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("draft flush not observed by watcher")
	}

	c.Clear(ctx)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case op := <-events:
			if op == store.OpDelete {
				return
			}
		case <-deadline:
			t.Fatal("draft clear not observed by watcher")
		}
	}
}

func TestCoordinator_ForeignEventRehydratesDocumentOnly(t *testing.T) {
	c, st := testCoordinator(t, 0)
	ctx := context.Background()

	c.Update(func(e *Envelope) { e.Form.Title = "Local Title" })

	// A foreign process wrote the same key with a newer document and its
	// own (stale) form fields.
	foreign := DefaultEnvelope()
	foreign.Form.Title = "Foreign Title"
	foreign.Document = json.RawMessage(`[{"type":"p","children":[{"text":"From editor"}]}]`)
	foreign.DocumentSavedAt = "2026-03-01T12:00:00Z"
	st.Set(ctx, store.NewNovelDraftKey, foreign)

	c.HandleStoreEvent(ctx, store.NewNovelDraftKey)

	got := c.Snapshot()
	if got.Form.Title != "Local Title" {
		t.Errorf("form title = %q, locally-owned fields must not re-hydrate", got.Form.Title)
	}
	if string(got.Document) != string(foreign.Document) {
		t.Errorf("document = %s, want the foreign document", got.Document)
	}
	if got.DocumentSavedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("documentSavedAt = %q", got.DocumentSavedAt)
	}
}

func TestCoordinator_ForeignEventOtherKeyIgnored(t *testing.T) {
	c, st := testCoordinator(t, 0)
	ctx := context.Background()

	st.Set(ctx, "reader:x:prefs", map[string]int{"fontScale": 2})
	before := c.Snapshot()
	c.HandleStoreEvent(ctx, "reader:x:prefs")
	after := c.Snapshot()

	if before.SavedAt != after.SavedAt || before.Form != after.Form {
		t.Error("event for an unrelated key mutated the working copy")
	}
}
