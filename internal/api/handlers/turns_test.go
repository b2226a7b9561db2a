package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTurnHandler_ListBySession(t *testing.T) {
	svc := new(MockTurnHistoryService)
	handler := NewTurnHandler(svc)
	confidence := 0.8
	svc.On("ListBySession", mock.Anything, "user-1", "abc", 5).Return(&pagination.PageResult[domain.TurnRecord]{
		Items: []domain.TurnRecord{{
			ID:         "t1",
			SessionID:  "user-1",
			Query:      "How many leave days?",
			Answer:     "Twenty.",
			Path:       domain.PathDirect,
			Sources:    []string{"leave.txt"},
			Confidence: &confidence,
			ChunkCount: 1,
			DurationMs: 12,
			CreatedAt:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		}},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/user-1/turns?cursor=abc&limit=5", nil)
	handler.ListBySession(w, withURLParam(req, "id", "user-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"items":[{
		"id":"t1","session_id":"user-1","query":"How many leave days?","answer":"Twenty.",
		"decision_path":"direct","sources":["leave.txt"],"confidence":0.8,"chunk_count":1,
		"duration_ms":12,"created_at":"2026-05-01T09:00:00Z"
	}],"cursor":"next","has_more":true}}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestTurnHandler_ListBySession_DefaultLimit(t *testing.T) {
	svc := new(MockTurnHistoryService)
	handler := NewTurnHandler(svc)
	svc.On("ListBySession", mock.Anything, "user-1", "", pagination.DefaultLimit).
		Return(&pagination.PageResult[domain.TurnRecord]{Items: []domain.TurnRecord{}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/user-1/turns?limit=zero", nil)
	handler.ListBySession(w, withURLParam(req, "id", "user-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestTurnHandler_ListBySession_InvalidCursor(t *testing.T) {
	svc := new(MockTurnHistoryService)
	handler := NewTurnHandler(svc)
	svc.On("ListBySession", mock.Anything, "user-1", "bad", mock.Anything).Return(nil, domain.ErrInvalidCursor)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/user-1/turns?cursor=bad", nil)
	handler.ListBySession(w, withURLParam(req, "id", "user-1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeValidation)
}

func TestTurnHandler_Similar(t *testing.T) {
	svc := new(MockTurnHistoryService)
	handler := NewTurnHandler(svc)
	svc.On("Similar", mock.Anything, "leave", 3).Return([]domain.TurnRecord{
		{ID: "t1", Query: "How many leave days?", Sources: []string{}, Distance: 0.25, CreatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
	}, nil)

	w := httptest.NewRecorder()
	handler.Similar(w, httptest.NewRequest(http.MethodGet, "/turns/similar?query=leave&limit=3", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"query":"leave","turns":[{
		"id":"t1","query":"How many leave days?","answer":"","decision_path":"","sources":[],
		"confidence":null,"chunk_count":0,"duration_ms":0,"created_at":"2026-05-01T09:00:00Z","distance":0.25
	}]}}`, w.Body.String())
}

func TestTurnHandler_Similar_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty query", domain.ErrEmptyQuery, http.StatusBadRequest},
		{"provider failure", domain.NewProviderError("embedding", errors.New("down")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTurnHistoryService)
			handler := NewTurnHandler(svc)
			svc.On("Similar", mock.Anything, "", pagination.DefaultLimit).Return(nil, tt.err)

			w := httptest.NewRecorder()
			handler.Similar(w, httptest.NewRequest(http.MethodGet, "/turns/similar", nil))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestTurnHandler_Similar_NoMatches(t *testing.T) {
	svc := new(MockTurnHistoryService)
	handler := NewTurnHandler(svc)
	svc.On("Similar", mock.Anything, "q", pagination.DefaultLimit).Return(nil, nil)

	w := httptest.NewRecorder()
	handler.Similar(w, httptest.NewRequest(http.MethodGet, "/turns/similar?query=q", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"query":"q","turns":[]}}`, w.Body.String())
}
