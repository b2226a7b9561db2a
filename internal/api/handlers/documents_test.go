package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentHandler_Ingest(t *testing.T) {
	docs := t.TempDir()
	mockIngester := new(MockDocumentIngester)
	tracker := &recordingTracker{}
	handler := NewDocumentHandler(mockIngester, tracker, docs, 0)

	want := []string{filepath.Join(docs, "leave.txt"), filepath.Join(docs, "sub", "remote.md")}
	mockIngester.On("Ingest", mock.Anything, want).Return(&domain.IngestReport{
		Ingested:    []string{"leave.txt", "remote.md"},
		Skipped:     []string{},
		ChunksAdded: 4,
		IndexSize:   10,
	}, nil)

	body := `{"paths":["leave.txt","` + filepath.Join(docs, "sub", "remote.md") + `"]}`
	w := httptest.NewRecorder()
	handler.Ingest(w, jsonRequest(http.MethodPost, "/documents/ingest", body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"ingested_files":["leave.txt","remote.md"],"skipped_files":[],"chunks_added":4,"index_size":10}}`, w.Body.String())
	assert.Equal(t, want, tracker.paths)
	mockIngester.AssertExpectations(t)
}

func TestDocumentHandler_IngestRejectsOutsidePaths(t *testing.T) {
	docs := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{name: "parent traversal", path: "../secrets.txt"},
		{name: "absolute elsewhere", path: "/etc/passwd"},
		{name: "directory itself", path: "."},
		{name: "blank", path: " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIngester := new(MockDocumentIngester)
			handler := NewDocumentHandler(mockIngester, nil, docs, 0)

			body, _ := json.Marshal(IngestRequest{Paths: []string{tt.path}})
			w := httptest.NewRecorder()
			handler.Ingest(w, jsonRequest(http.MethodPost, "/documents/ingest", string(body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "outside the documents directory")
			mockIngester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
		})
	}
}

func TestDocumentHandler_IngestValidation(t *testing.T) {
	mockIngester := new(MockDocumentIngester)
	handler := NewDocumentHandler(mockIngester, nil, t.TempDir(), 0)

	w := httptest.NewRecorder()
	handler.Ingest(w, jsonRequest(http.MethodPost, "/documents/ingest", `{"paths":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "paths are required")

	w = httptest.NewRecorder()
	handler.Ingest(w, jsonRequest(http.MethodPost, "/documents/ingest", `nope`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_IngestError(t *testing.T) {
	mockIngester := new(MockDocumentIngester)
	handler := NewDocumentHandler(mockIngester, nil, t.TempDir(), 0)
	mockIngester.On("Ingest", mock.Anything, mock.Anything).Return(nil, domain.NewProviderError("embedding", assert.AnError))

	w := httptest.NewRecorder()
	handler.Ingest(w, jsonRequest(http.MethodPost, "/documents/ingest", `{"paths":["a.txt"]}`))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDocumentHandler_Upload(t *testing.T) {
	docs := filepath.Join(t.TempDir(), "docs")
	mockIngester := new(MockDocumentIngester)
	tracker := &recordingTracker{}
	handler := NewDocumentHandler(mockIngester, tracker, docs, 64)

	mockIngester.On("Ingest", mock.Anything, mock.MatchedBy(func(paths []string) bool {
		return len(paths) == 1 && filepath.Dir(paths[0]) == docs &&
			strings.HasPrefix(filepath.Base(paths[0]), "leave-") && strings.HasSuffix(paths[0], ".txt")
	})).Return(&domain.IngestReport{Ingested: []string{"leave-x.txt"}, Skipped: []string{}, ChunksAdded: 1, IndexSize: 1}, nil)

	w := httptest.NewRecorder()
	handler.Upload(w, uploadRequest(t, map[string]string{
		"leave.TXT":  "Employees receive 20 days of annual leave.",
		"photo.png":  "binary",
		"manual.txt": strings.Repeat("x", 65),
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []any{"photo.png"}, resp.Data["invalid_files"])
	assert.Equal(t, []any{"manual.txt"}, resp.Data["too_large_files"])
	assert.Equal(t, float64(1), resp.Data["chunks_added"])

	stored := resp.Data["stored_files"].([]any)
	require.Len(t, stored, 1)
	content, err := os.ReadFile(filepath.Join(docs, stored[0].(string)))
	require.NoError(t, err)
	assert.Equal(t, "Employees receive 20 days of annual leave.", string(content))
	assert.Equal(t, []string{filepath.Join(docs, stored[0].(string))}, tracker.paths)

	entries, err := os.ReadDir(docs)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
	mockIngester.AssertExpectations(t)
}

func TestDocumentHandler_UploadNothingValid(t *testing.T) {
	mockIngester := new(MockDocumentIngester)
	handler := NewDocumentHandler(mockIngester, nil, t.TempDir(), 0)

	w := httptest.NewRecorder()
	handler.Upload(w, uploadRequest(t, map[string]string{"scan.tiff": "II*"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"no valid files to process","invalid_files":["scan.tiff"],"too_large_files":[]}`, w.Body.String())
	mockIngester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestDocumentHandler_UploadRequiresFiles(t *testing.T) {
	handler := NewDocumentHandler(new(MockDocumentIngester), nil, t.TempDir(), 0)

	w := httptest.NewRecorder()
	handler.Upload(w, uploadRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no files provided")

	w = httptest.NewRecorder()
	handler.Upload(w, jsonRequest(http.MethodPost, "/documents/upload", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid multipart form")
}
