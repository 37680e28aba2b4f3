package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/malaztl/nocturne/internal/apperr"
	"github.com/malaztl/nocturne/internal/session"
)

// Handler holds the HTTP handlers for the workstation API.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler over the given service.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	}
}

// GetRecord handles GET /drafts/{key}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	raw, err := h.svc.GetRecord(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// PutRecord handles PUT /drafts/{key}.
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unreadable body"))
		return
	}
	if err := h.svc.PutRecord(r.Context(), key, body); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRecord handles DELETE /drafts/{key}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	h.svc.DeleteRecord(r.Context(), chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

// GetWorkstation handles GET /workstation.
func (h *Handler) GetWorkstation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Workstation())
}

// PatchWorkstation handles PATCH /workstation.
func (h *Handler) PatchWorkstation(w http.ResponseWriter, r *http.Request) {
	var patch EnvelopePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid patch body"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.UpdateWorkstation(patch))
}

// PutWorkstationDocument handles PUT /workstation/document.
func (h *Handler) PutWorkstationDocument(w http.ResponseWriter, r *http.Request) {
	var req SaveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid document body"))
		return
	}
	env, err := h.svc.SaveWorkstationDocument(r.Context(), req.Document)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// ClearWorkstation handles POST /workstation/clear.
func (h *Handler) ClearWorkstation(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearWorkstation(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionResponse{Session: h.svc.Session()})
}

// PutSession handles PUT /session.
func (h *Handler) PutSession(w http.ResponseWriter, r *http.Request) {
	var sess session.Session
	if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid session body"))
		return
	}
	if err := h.svc.SaveSession(sess); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession handles DELETE /session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearSession()
	w.WriteHeader(http.StatusNoContent)
}

// Serialize handles POST /serialize.
func (h *Handler) Serialize(w http.ResponseWriter, r *http.Request) {
	var req SerializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid serialize body"))
		return
	}
	writeJSON(w, http.StatusOK, SerializeResponse{Text: h.svc.Serialize(req.Content)})
}

// Publish handles POST /publish.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Publish(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
