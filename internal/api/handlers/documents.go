package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/cloo-solutions/askdocs/internal/domain"
	"github.com/cloo-solutions/askdocs/internal/parser"
	"github.com/google/uuid"
)

const multipartMemory = 8 << 20

type DocumentIngester interface {
	Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error)
}

// PathTracker is told about files the handler ingests itself, so the
// directory watcher does not queue them a second time.
type PathTracker interface {
	MarkSeen(paths ...string)
}

type DocumentHandler struct {
	ingester DocumentIngester
	tracker  PathTracker
	docsDir  string
	maxBytes int64
}

// NewDocumentHandler creates a DocumentHandler. tracker may be nil.
func NewDocumentHandler(ingester DocumentIngester, tracker PathTracker, docsDir string, maxBytes int64) *DocumentHandler {
	if abs, err := filepath.Abs(docsDir); err == nil {
		docsDir = abs
	}
	return &DocumentHandler{ingester: ingester, tracker: tracker, docsDir: docsDir, maxBytes: maxBytes}
}

type IngestRequest struct {
	Paths []string `json:"paths"`
}

type UploadResponse struct {
	StoredFiles   []string `json:"stored_files"`
	InvalidFiles  []string `json:"invalid_files"`
	TooLargeFiles []string `json:"too_large_files"`
	*domain.IngestReport
}

type uploadRejection struct {
	Error         string   `json:"error"`
	InvalidFiles  []string `json:"invalid_files"`
	TooLargeFiles []string `json:"too_large_files"`
}

// Ingest adds files that already sit in the documents directory.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Paths) == 0 {
		api.Error(w, http.StatusBadRequest, "paths are required")
		return
	}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		resolved, ok := h.resolve(p)
		if !ok {
			api.Error(w, http.StatusBadRequest, fmt.Sprintf("path is outside the documents directory: %s", p))
			return
		}
		paths = append(paths, resolved)
	}
	h.markSeen(paths...)

	report, err := h.ingester.Ingest(r.Context(), paths)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	middleware.SetOutcome(r.Context(), middleware.Outcome{Chunks: report.ChunksAdded})
	api.Success(w, http.StatusOK, report)
}

// Upload stores multipart "files" in the documents directory under unique
// names and ingests them.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		api.Error(w, http.StatusBadRequest, "no files provided")
		return
	}

	if err := os.MkdirAll(h.docsDir, 0o755); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to prepare documents directory")
		return
	}

	resp := UploadResponse{StoredFiles: []string{}, InvalidFiles: []string{}, TooLargeFiles: []string{}}
	var saved []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if fh.Filename == "" || !parser.Supported(name) {
			resp.InvalidFiles = append(resp.InvalidFiles, displayName(name))
			continue
		}
		if h.maxBytes > 0 && fh.Size > h.maxBytes {
			resp.TooLargeFiles = append(resp.TooLargeFiles, name)
			continue
		}

		stored, err := h.store(fh, name)
		if err != nil {
			api.Error(w, http.StatusInternalServerError, fmt.Sprintf("failed to store file: %s", name))
			return
		}
		resp.StoredFiles = append(resp.StoredFiles, filepath.Base(stored))
		saved = append(saved, stored)
	}

	if len(saved) == 0 {
		api.JSON(w, http.StatusBadRequest, uploadRejection{
			Error:         "no valid files to process",
			InvalidFiles:  resp.InvalidFiles,
			TooLargeFiles: resp.TooLargeFiles,
		})
		return
	}

	report, err := h.ingester.Ingest(r.Context(), saved)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	middleware.SetOutcome(r.Context(), middleware.Outcome{Chunks: report.ChunksAdded})
	resp.IngestReport = report
	api.Success(w, http.StatusOK, resp)
}

// store writes the upload under a hidden temporary name and renames it into
// place once the tracker knows about it.
func (h *DocumentHandler) store(fh *multipart.FileHeader, name string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := filepath.Ext(name)
	unique := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), strings.ReplaceAll(uuid.NewString(), "-", ""), strings.ToLower(ext))
	final := filepath.Join(h.docsDir, unique)

	tmp, err := os.CreateTemp(h.docsDir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	h.markSeen(final)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", err
	}
	return final, nil
}

func (h *DocumentHandler) resolve(p string) (string, bool) {
	if strings.TrimSpace(p) == "" {
		return "", false
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(h.docsDir, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(h.docsDir, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

func (h *DocumentHandler) markSeen(paths ...string) {
	if h.tracker != nil {
		h.tracker.MarkSeen(paths...)
	}
}

func displayName(name string) string {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "unknown"
	}
	return name
}
