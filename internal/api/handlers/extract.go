package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/domain"
)

type DocumentExtractor interface {
	Extract(ctx context.Context, req domain.ExtractRequest) (*domain.Extraction, error)
}

type ExtractHandler struct {
	extractor DocumentExtractor
}

func NewExtractHandler(extractor DocumentExtractor) *ExtractHandler {
	return &ExtractHandler{extractor: extractor}
}

// ExtractRequest names the text to extract from. UseLatest defaults to true
// when omitted.
type ExtractRequest struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	UseLatest *bool  `json:"use_latest"`
}

// Extract returns key/value pairs, a preview and shipment fields for the
// supplied text, a named document, or the newest document.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	useLatest := true
	if req.UseLatest != nil {
		useLatest = *req.UseLatest
	}

	result, err := h.extractor.Extract(r.Context(), domain.ExtractRequest{
		Text:      req.Text,
		Source:    req.Source,
		UseLatest: useLatest,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}
