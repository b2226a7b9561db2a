package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
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

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	args := m.Called(ctx, paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestReport), args.Error(1)
}

func (m *MockRetriever) Status(ctx context.Context) domain.IndexStatus {
	args := m.Called(ctx)
	return args.Get(0).(domain.IndexStatus)
}

func (m *MockRetriever) RebuildFromDir(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

type MockTurnHistory struct {
	mock.Mock
}

func (m *MockTurnHistory) ListBySession(ctx context.Context, sessionID, cursor string, limit int) (*pagination.PageResult[domain.TurnRecord], error) {
	args := m.Called(ctx, sessionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[domain.TurnRecord]), args.Error(1)
}

func (m *MockTurnHistory) Similar(ctx context.Context, query string, limit int) ([]domain.TurnRecord, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TurnRecord), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, req domain.ExtractRequest) (*domain.Extraction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}

type testRouter struct {
	handler   http.Handler
	agent     *MockQueryAgent
	sessions  *MockSessionStore
	retriever *MockRetriever
	extractor *MockExtractor
	docsDir   string
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	tr := &testRouter{
		agent:     new(MockQueryAgent),
		sessions:  new(MockSessionStore),
		retriever: new(MockRetriever),
		extractor: new(MockExtractor),
		docsDir:   t.TempDir(),
	}
	tr.handler = NewRouter(RouterConfig{
		AskHandler:      handlers.NewAskHandler(tr.agent),
		SessionHandler:  handlers.NewSessionHandler(tr.sessions),
		DocumentHandler: handlers.NewDocumentHandler(tr.retriever, nil, tr.docsDir, 1024),
		IndexHandler:    handlers.NewIndexHandler(tr.retriever, tr.docsDir),
		ExtractHandler:  handlers.NewExtractHandler(tr.extractor),
		MaxUploadBytes:  1024,
	})
	return tr
}

func (tr *testRouter) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"status":"ok"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_Ask(t *testing.T) {
	tr := newTestRouter(t)
	tr.agent.On("ProcessQuery", mock.Anything, "What is the leave policy?", "user-123").
		Return(domain.Turn{Answer: "20 days.", Sources: []string{"leave_policy.txt"}, Path: domain.PathContext})

	w := tr.do(http.MethodPost, "/ask", `{"query":"What is the leave policy?","session_id":"user-123"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data handlers.AskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "20 days.", resp.Data.Answer)
	assert.Equal(t, []string{"leave_policy.txt"}, resp.Data.Sources)
}

func TestRouter_Sessions(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.On("History", "abc").Return([]domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	tr.sessions.On("Clear", "abc").Return()

	w := tr.do(http.MethodGet, "/sessions/abc", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session_id":"abc"`)

	w = tr.do(http.MethodDelete, "/sessions/abc", "")
	assert.Equal(t, http.StatusOK, w.Code)
	tr.sessions.AssertExpectations(t)
}

func TestRouter_Index(t *testing.T) {
	tr := newTestRouter(t)
	tr.retriever.On("Status", mock.Anything).Return(domain.IndexStatus{Initialized: true, Size: 2, Dimension: 3, Sources: []string{"a.txt"}})
	tr.retriever.On("RebuildFromDir", mock.Anything, tr.docsDir).Return(nil)

	w := tr.do(http.MethodGet, "/index", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"size":2`)

	w = tr.do(http.MethodPost, "/index/rebuild", "")
	assert.Equal(t, http.StatusOK, w.Code)
	tr.retriever.AssertExpectations(t)
}

func TestRouter_DocumentsIngest(t *testing.T) {
	tr := newTestRouter(t)
	tr.retriever.On("Ingest", mock.Anything, mock.Anything).
		Return(&domain.IngestReport{Ingested: []string{"a.txt"}, Skipped: []string{}, ChunksAdded: 1, IndexSize: 1}, nil)

	w := tr.do(http.MethodPost, "/documents/ingest", `{"paths":["a.txt"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"chunks_added":1`)
}

func TestRouter_Extract(t *testing.T) {
	tr := newTestRouter(t)
	tr.extractor.On("Extract", mock.Anything, domain.ExtractRequest{Source: "bol.txt", UseLatest: true}).
		Return(&domain.Extraction{Source: "bol.txt", KeyValues: []domain.KeyValue{}}, nil)

	w := tr.do(http.MethodPost, "/extract", `{"source":"bol.txt"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"bol.txt"`)
	tr.extractor.AssertExpectations(t)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	tr := newTestRouter(t)

	big := `{"query":"` + string(bytes.Repeat([]byte("a"), 2<<20)) + `"}`
	w := tr.do(http.MethodPost, "/ask", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	tr.agent.AssertNotCalled(t, "ProcessQuery", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_NotFound(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(http.MethodGet, "/knowledge", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_TurnsRequireHandler(t *testing.T) {
	tr := newTestRouter(t)

	assert.Equal(t, http.StatusNotFound, tr.do(http.MethodGet, "/turns/similar?query=x", "").Code)
	assert.Equal(t, http.StatusNotFound, tr.do(http.MethodGet, "/sessions/abc/turns", "").Code)
}

func TestRouter_Turns(t *testing.T) {
	turns := new(MockTurnHistory)
	handler := NewRouter(RouterConfig{
		AskHandler:      handlers.NewAskHandler(new(MockQueryAgent)),
		SessionHandler:  handlers.NewSessionHandler(new(MockSessionStore)),
		DocumentHandler: handlers.NewDocumentHandler(new(MockRetriever), nil, t.TempDir(), 1024),
		IndexHandler:    handlers.NewIndexHandler(new(MockRetriever), t.TempDir()),
		ExtractHandler:  handlers.NewExtractHandler(new(MockExtractor)),
		TurnHandler:     handlers.NewTurnHandler(turns),
	})
	turns.On("ListBySession", mock.Anything, "abc", "", pagination.DefaultLimit).
		Return(&pagination.PageResult[domain.TurnRecord]{Items: []domain.TurnRecord{{ID: "t1"}}}, nil)
	turns.On("Similar", mock.Anything, "leave", 2).Return([]domain.TurnRecord{{ID: "t2"}}, nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/abc/turns", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"t1"`)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/turns/similar?query=leave&limit=2", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"t2"`)
	turns.AssertExpectations(t)
}
