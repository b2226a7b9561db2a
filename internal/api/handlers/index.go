package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/domain"
)

type IndexService interface {
	Status(ctx context.Context) domain.IndexStatus
	RebuildFromDir(ctx context.Context, dir string) error
}

type IndexHandler struct {
	svc     IndexService
	docsDir string
}

func NewIndexHandler(svc IndexService, docsDir string) *IndexHandler {
	return &IndexHandler{svc: svc, docsDir: docsDir}
}

func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.svc.Status(r.Context()))
}

// Rebuild re-chunks and re-embeds every document in the docs directory.
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RebuildFromDir(r.Context(), h.docsDir); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, h.svc.Status(r.Context()))
}
