package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockLanguageModel mocks LanguageModelProvider
type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) Complete(ctx context.Context, messages []domain.Message, temperature float32) (string, error) {
	args := m.Called(ctx, messages, temperature)
	return args.String(0), args.Error(1)
}

// MockDocumentSearcher mocks DocumentSearcher
type MockDocumentSearcher struct {
	mock.Mock
}

func (m *MockDocumentSearcher) Retrieve(ctx context.Context, query string, topK int) (*Retrieval, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Retrieval), args.Error(1)
}

func (m *MockDocumentSearcher) HasIndexData(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// MockTurnLogger mocks TurnLogger
type MockTurnLogger struct {
	mock.Mock
}

func (m *MockTurnLogger) LogTurn(ctx context.Context, entry TurnLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockEmbeddingProvider mocks EmbeddingProvider
type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbeddingProvider) Dimension() int {
	args := m.Called()
	return args.Int(0)
}

// keywordEmbedder embeds text as counts of a fixed vocabulary, so similar
// texts land close together without a real model.
type keywordEmbedder struct {
	vocab []string
	calls [][]string
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab}
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(e.vocab))
		for j, w := range e.vocab {
			v[j] = float32(strings.Count(lower, w))
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int {
	return len(e.vocab)
}

// mapParser serves file contents from memory.
type mapParser map[string]string

func (p mapParser) Parse(path string) (string, bool) {
	text, ok := p[path]
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// MockTurnStore is a mock implementation of TurnStore
type MockTurnStore struct {
	mock.Mock
}

func (m *MockTurnStore) ListBySession(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[domain.TurnRecord], error) {
	args := m.Called(ctx, sessionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[domain.TurnRecord]), args.Error(1)
}

func (m *MockTurnStore) SimilarTurns(ctx context.Context, embedding []float32, limit int) ([]domain.TurnRecord, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TurnRecord), args.Error(1)
}
