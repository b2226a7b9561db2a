package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/go-chi/chi/v5"
)

type TurnHistoryService interface {
	ListBySession(ctx context.Context, sessionID, cursor string, limit int) (*pagination.PageResult[domain.TurnRecord], error)
	Similar(ctx context.Context, query string, limit int) ([]domain.TurnRecord, error)
}

// TurnHandler serves the persisted turn log. It is only mounted when a
// database is configured.
type TurnHandler struct {
	svc TurnHistoryService
}

func NewTurnHandler(svc TurnHistoryService) *TurnHandler {
	return &TurnHandler{svc: svc}
}

type SimilarTurnsResponse struct {
	Query string              `json:"query"`
	Turns []domain.TurnRecord `json:"turns"`
}

func (h *TurnHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	middleware.SetSessionID(r.Context(), id)

	page, err := h.svc.ListBySession(r.Context(), id, r.URL.Query().Get("cursor"), queryLimit(r))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, page)
}

func (h *TurnHandler) Similar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	turns, err := h.svc.Similar(r.Context(), query, queryLimit(r))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if turns == nil {
		turns = []domain.TurnRecord{}
	}
	api.Success(w, http.StatusOK, &SimilarTurnsResponse{Query: query, Turns: turns})
}

// queryLimit reads ?limit=, falling back to the default page size.
func queryLimit(r *http.Request) int {
	limit := pagination.DefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}
