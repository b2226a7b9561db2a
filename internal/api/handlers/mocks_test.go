package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

type MockQueryAgent struct {
	mock.Mock
}

func (m *MockQueryAgent) ProcessQuery(ctx context.Context, query, sessionID string) domain.Turn {
	args := m.Called(ctx, query, sessionID)
	return args.Get(0).(domain.Turn)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) History(sessionID string) []domain.Message {
	args := m.Called(sessionID)
	return args.Get(0).([]domain.Message)
}

func (m *MockSessionStore) Clear(sessionID string) {
	m.Called(sessionID)
}

type MockDocumentIngester struct {
	mock.Mock
}

func (m *MockDocumentIngester) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	args := m.Called(ctx, paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestReport), args.Error(1)
}

type MockIndexService struct {
	mock.Mock
}

func (m *MockIndexService) Status(ctx context.Context) domain.IndexStatus {
	args := m.Called(ctx)
	return args.Get(0).(domain.IndexStatus)
}

func (m *MockIndexService) RebuildFromDir(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

type MockTurnHistoryService struct {
	mock.Mock
}

func (m *MockTurnHistoryService) ListBySession(ctx context.Context, sessionID, cursor string, limit int) (*pagination.PageResult[domain.TurnRecord], error) {
	args := m.Called(ctx, sessionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[domain.TurnRecord]), args.Error(1)
}

func (m *MockTurnHistoryService) Similar(ctx context.Context, query string, limit int) ([]domain.TurnRecord, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TurnRecord), args.Error(1)
}

type recordingTracker struct {
	paths []string
}

func (r *recordingTracker) MarkSeen(paths ...string) {
	r.paths = append(r.paths, paths...)
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type MockDocumentExtractor struct {
	mock.Mock
}

func (m *MockDocumentExtractor) Extract(ctx context.Context, req domain.ExtractRequest) (*domain.Extraction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}
