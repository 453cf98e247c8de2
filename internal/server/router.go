package server

import (
	"net/http"

	"github.com/clinvector/ehrqa/internal/api"
	"github.com/clinvector/ehrqa/internal/api/handlers"
	"github.com/clinvector/ehrqa/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	QAHandler *handlers.QAHandler

	// IndexReady reports whether a corpus index is currently loaded.
	IndexReady func() bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "index": "ready"}
		if cfg.IndexReady != nil && !cfg.IndexReady() {
			status["index"] = "not_built"
		}
		api.Success(w, http.StatusOK, status)
	})

	r.Post("/ask", cfg.QAHandler.Ask)

	return r
}
