package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/herald/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
//
//	@Summary		Publisher state and the latest pass
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, err, "status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListPasses handles GET /api/passes.
//
//	@Summary		Recent passes, newest first
//	@Tags			passes
//	@Produce		json
//	@Param			limit	query		int	false	"Max passes"
//	@Success		200		{object}	PassListResponse
//	@Security		BearerAuth
//	@Router			/passes [get]
func (h *Handler) ListPasses(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	passes, err := h.svc.RecentPasses(r.Context(), limit)
	if err != nil {
		writeError(w, err, "list passes")
		return
	}
	writeJSON(w, http.StatusOK, PassListResponse{Passes: passes})
}

// PassEvents handles GET /api/passes/{id}/events.
//
//	@Summary		Events of one pass in emission order
//	@Tags			passes
//	@Produce		json
//	@Param			id	path		int	true	"Pass id"
//	@Success		200	{object}	EventListResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/passes/{id}/events [get]
func (h *Handler) PassEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid pass id"))
		return
	}
	events, err := h.svc.PassEvents(r.Context(), id)
	if err != nil {
		writeError(w, err, "pass events", slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: events})
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		Currently published documents
//	@Tags			documents
//	@Produce		json
//	@Param			tag	query		string	false	"Only documents carrying this tag"
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		writeError(w, err, "list documents")
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across published documents
//	@Tags			documents
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Preview handles GET /api/preview.
//
//	@Summary		Render a note as it would be published
//	@Tags			documents
//	@Produce		json
//	@Param			path	query		string	true	"Note path relative to the notes root"
//	@Success		200		{object}	PreviewResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	rendered, err := h.svc.Preview(r.Context(), path)
	if err != nil {
		writeError(w, err, "preview", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

// Sync handles POST /api/sync.
//
//	@Summary		Request a publishing pass
//	@Description	Queues a pass and returns 202. With wait=true the pass runs before the response and its outline is returned.
//	@Tags			passes
//	@Produce		json
//	@Param			wait	query		bool	false	"Wait for the pass to finish"
//	@Success		200		{object}	models.PassSummary
//	@Success		202		{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		report, err := h.svc.SyncNow(r.Context())
		if report == nil {
			writeError(w, err, "sync")
			return
		}
		writeJSON(w, http.StatusOK, report.Summary())
		return
	}
	writeJSON(w, http.StatusAccepted, SyncResponse{Queued: h.svc.RequestSync()})
}
