package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestAPIClient_PostSendsJSON(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]string{"ok": "yes"}})
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithConfig(srv.URL).Post("/ask", map[string]string{"query": "hi"})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/ask", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "hi", gotBody["query"])
	assert.JSONEq(t, `{"ok":"yes"}`, string(resp.Data))
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query cannot be empty", "code": "VALIDATION_ERROR"})
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(srv.URL).Get("/index")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "query cannot be empty", apiErr.Message)
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(srv.URL).Delete("/sessions/x")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAPIClient_NonJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain")
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(srv.URL).Get("/health")

	assert.ErrorContains(t, err, "failed to parse response")
}

func TestAPIClient_UploadFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("# beta"), 0o644))

	got := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/upload", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if !assert.NoError(t, err) {
				return
			}
			data, _ := io.ReadAll(f)
			f.Close()
			got[fh.Filename] = string(data)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]int{"chunks_added": 2}})
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig(srv.URL).UploadFiles([]string{a, b})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.md": "# beta"}, got)
}

func TestAPIClient_UploadMissingFile(t *testing.T) {
	_, err := NewAPIClientWithConfig("http://unused").UploadFiles([]string{filepath.Join(t.TempDir(), "nope.txt")})

	assert.ErrorContains(t, err, "failed to open file")
}
