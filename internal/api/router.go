package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Raw durable-store records (reader prefs, per-novel state, ...).
	r.Get("/drafts/{key}", h.GetRecord)
	r.Put("/drafts/{key}", h.PutRecord)
	r.Delete("/drafts/{key}", h.DeleteRecord)

	// The new-novel workstation draft.
	r.Get("/workstation", h.GetWorkstation)
	r.Patch("/workstation", h.PatchWorkstation)
	r.Put("/workstation/document", h.PutWorkstationDocument)
	r.Post("/workstation/clear", h.ClearWorkstation)

	// Session snapshot.
	r.Get("/session", h.GetSession)
	r.Put("/session", h.PutSession)
	r.Delete("/session", h.DeleteSession)

	// Content coercion and publishing.
	r.Post("/serialize", h.Serialize)
	r.Post("/publish", h.Publish)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
