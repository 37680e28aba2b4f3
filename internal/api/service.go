package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/malaztl/nocturne/internal/apperr"
	"github.com/malaztl/nocturne/internal/draft"
	"github.com/malaztl/nocturne/internal/remote"
	"github.com/malaztl/nocturne/internal/richtext"
	"github.com/malaztl/nocturne/internal/session"
	"github.com/malaztl/nocturne/internal/store"
)

// Service coordinates the durable store, the draft coordinator, the session
// cache, and the remote backend for the API layer.
type Service struct {
	store       *store.Store
	coordinator *draft.Coordinator
	sessions    *session.Cache
	remote      *remote.Client
}

// NewService creates a new API service. remoteClient may be nil when the
// workstation runs offline; publish then fails with a clear message.
func NewService(st *store.Store, c *draft.Coordinator, sessions *session.Cache, remoteClient *remote.Client) *Service {
	return &Service{store: st, coordinator: c, sessions: sessions, remote: remoteClient}
}

// GetRecord reads a raw record from the durable store.
func (s *Service) GetRecord(ctx context.Context, key string) (json.RawMessage, error) {
	raw, ok := s.store.GetRaw(ctx, key)
	if !ok {
		return nil, fmt.Errorf("record %q: %w", key, apperr.ErrNotFound)
	}
	return raw, nil
}

// PutRecord stores a raw record, fully replacing any prior value.
func (s *Service) PutRecord(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("record %q: body is not valid JSON: %w", key, apperr.ErrBadRequest)
	}
	s.store.SetRaw(ctx, key, value)
	return nil
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, key string) {
	s.store.Delete(ctx, key)
}

// Workstation returns the current working copy of the new-novel draft.
func (s *Service) Workstation() draft.Envelope {
	return s.coordinator.Snapshot()
}

// UpdateWorkstation applies a field patch to the working copy through the
// debounced coordinator.
func (s *Service) UpdateWorkstation(patch EnvelopePatch) draft.Envelope {
	s.coordinator.Update(func(e *draft.Envelope) { patch.apply(e) })
	return s.coordinator.Snapshot()
}

// SaveWorkstationDocument persists the rich-text document immediately.
func (s *Service) SaveWorkstationDocument(ctx context.Context, document json.RawMessage) (draft.Envelope, error) {
	if !json.Valid(document) {
		return draft.Envelope{}, fmt.Errorf("document is not valid JSON: %w", apperr.ErrBadRequest)
	}
	s.coordinator.SaveDocument(ctx, document)
	return s.coordinator.Snapshot(), nil
}

// ClearWorkstation discards the draft and its stored record.
func (s *Service) ClearWorkstation(ctx context.Context) {
	s.coordinator.Clear(ctx)
}

// Session returns the current session snapshot, or nil.
func (s *Service) Session() *session.Session {
	return s.sessions.Read()
}

// SaveSession persists a new session snapshot.
func (s *Service) SaveSession(sess session.Session) error {
	if sess.Token == "" {
		return fmt.Errorf("session token is required: %w", apperr.ErrBadRequest)
	}
	s.sessions.Save(sess)
	return nil
}

// ClearSession deletes the session snapshot.
func (s *Service) ClearSession() {
	s.sessions.Clear()
}

// Serialize coerces chapter content (plain text or a JSON document tree)
// into plain text.
func (s *Service) Serialize(content string) string {
	return richtext.CoerceToPlainText(content)
}

// PublishResult reports what a publish created on the backend.
type PublishResult struct {
	NovelID   int `json:"novelId"`
	ChapterID int `json:"chapterId"`
}

// Publish submits the workstation draft to the site backend as a novel
// plus its first chapter, then clears the draft. The chapter content is
// the serialized document when one was saved from the editor, otherwise
// the raw chapter text field.
func (s *Service) Publish(ctx context.Context) (*PublishResult, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("no backend configured: %w", apperr.ErrBadRequest)
	}
	sess := s.sessions.Read()
	if !sess.IsAdmin() {
		return nil, fmt.Errorf("admin session required: %w", apperr.ErrUnauthorized)
	}

	env := s.coordinator.Snapshot()
	if strings.TrimSpace(env.Form.Title) == "" {
		return nil, fmt.Errorf("draft has no title: %w", apperr.ErrBadRequest)
	}

	content := env.ChapterText
	if len(env.Document) > 0 {
		if text := richtext.SerializeRaw(env.Document); text != "" {
			content = text
		}
	}
	content = richtext.CoerceToPlainText(content)

	client := s.remote.WithToken(sess.Token)

	novel, err := client.CreateNovel(ctx, remote.NovelInput{
		Title:    env.Form.Title,
		Author:   env.Form.Author,
		Origin:   env.Form.Origin,
		Team:     env.Form.Team,
		Synopsis: env.Form.Synopsis,
		CoverURL: env.CoverURL,
	})
	if err != nil {
		return nil, err
	}

	chapter, err := client.CreateChapter(ctx, novel.ID, remote.ChapterInput{
		Volume:  env.VolumeNumber,
		Number:  env.ChapterNumber,
		Title:   env.ChapterTitle,
		Content: content,
	})
	if err != nil {
		return nil, err
	}

	s.coordinator.Clear(ctx)
	return &PublishResult{NovelID: novel.ID, ChapterID: chapter.ID}, nil
}
