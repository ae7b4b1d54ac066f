package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/herald/internal/siteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *siteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)

	// Pass history.
	r.Get("/passes", h.ListPasses)
	r.Get("/passes/{id}/events", h.PassEvents)
	r.Post("/sync", h.Sync)

	// Published documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/search", h.Search)
	r.Get("/preview", h.Preview)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
