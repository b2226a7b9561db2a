// Package server wires handlers and middleware into the HTTP router.
package server

import (
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/cloo-solutions/askdocs/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes      int64 = 1 << 20
	uploadHeaderBytes int64 = 1 << 20
)

type RouterConfig struct {
	AskHandler      *handlers.AskHandler
	SessionHandler  *handlers.SessionHandler
	DocumentHandler *handlers.DocumentHandler
	IndexHandler    *handlers.IndexHandler
	ExtractHandler  *handlers.ExtractHandler
	// TurnHandler is nil when no database is configured.
	TurnHandler *handlers.TurnHandler
	// MaxUploadBytes bounds a whole multipart upload request.
	MaxUploadBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(maxBodyBytes))

		r.Post("/ask", cfg.AskHandler.Ask)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/{id}", cfg.SessionHandler.Get)
			r.Delete("/{id}", cfg.SessionHandler.Clear)
			if cfg.TurnHandler != nil {
				r.Get("/{id}/turns", cfg.TurnHandler.ListBySession)
			}
		})

		if cfg.TurnHandler != nil {
			r.Get("/turns/similar", cfg.TurnHandler.Similar)
		}

		r.Post("/documents/ingest", cfg.DocumentHandler.Ingest)
		r.Post("/extract", cfg.ExtractHandler.Extract)

		r.Get("/index", cfg.IndexHandler.Status)
		r.Post("/index/rebuild", cfg.IndexHandler.Rebuild)
	})

	uploadLimit := cfg.MaxUploadBytes
	if uploadLimit > 0 {
		uploadLimit += uploadHeaderBytes
	}
	r.With(middleware.MaxBodyBytes(uploadLimit)).Post("/documents/upload", cfg.DocumentHandler.Upload)

	return r
}
