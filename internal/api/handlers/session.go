package handlers

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/go-chi/chi/v5"
)

type SessionStore interface {
	History(sessionID string) []domain.Message
	Clear(sessionID string)
}

type SessionHandler struct {
	store SessionStore
}

func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []domain.Message `json:"messages"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	middleware.SetSessionID(r.Context(), id)

	api.Success(w, http.StatusOK, &SessionResponse{
		SessionID: id,
		Messages:  h.store.History(id),
	})
}

// Clear succeeds for unknown sessions too.
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	middleware.SetSessionID(r.Context(), id)

	h.store.Clear(id)
	api.Success(w, http.StatusOK, &MessageResponse{
		Message: fmt.Sprintf("Session '%s' cleared successfully", id),
	})
}
