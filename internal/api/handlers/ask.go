package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/cloo-solutions/askdocs/internal/domain"
)

const (
	MaxQueryLength     = 2000
	MaxSessionIDLength = 100
)

type QueryAgent interface {
	ProcessQuery(ctx context.Context, query, sessionID string) domain.Turn
}

type AskHandler struct {
	agent QueryAgent
}

func NewAskHandler(agent QueryAgent) *AskHandler {
	return &AskHandler{agent: agent}
}

type AskRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type AskResponse struct {
	Answer     string                `json:"answer"`
	Sources    []string              `json:"sources"`
	Chunks     []domain.SearchResult `json:"chunks"`
	Confidence *float64              `json:"confidence"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		api.Error(w, http.StatusBadRequest, "query cannot be empty or contain only whitespace")
		return
	}
	if utf8.RuneCountInString(req.Query) > MaxQueryLength {
		api.Error(w, http.StatusBadRequest, fmt.Sprintf("query exceeds %d characters", MaxQueryLength))
		return
	}
	if utf8.RuneCountInString(req.SessionID) > MaxSessionIDLength {
		api.Error(w, http.StatusBadRequest, fmt.Sprintf("session_id exceeds %d characters", MaxSessionIDLength))
		return
	}
	middleware.SetSessionID(r.Context(), req.SessionID)

	turn := h.agent.ProcessQuery(r.Context(), query, req.SessionID)
	middleware.SetOutcome(r.Context(), middleware.Outcome{DecisionPath: string(turn.Path), Chunks: len(turn.Chunks)})

	api.Success(w, http.StatusOK, turnToResponse(turn))
}

func turnToResponse(turn domain.Turn) *AskResponse {
	resp := &AskResponse{
		Answer:     turn.Answer,
		Sources:    turn.Sources,
		Chunks:     turn.Chunks,
		Confidence: turn.Confidence,
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if resp.Chunks == nil {
		resp.Chunks = []domain.SearchResult{}
	}
	return resp
}
