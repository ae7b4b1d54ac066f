package api

import (
	"github.com/starford/herald/internal/journal"
	"github.com/starford/herald/internal/models"
	"github.com/starford/herald/internal/publisher"
	"github.com/starford/herald/internal/siteservice"
)

// StatusResponse is the publisher state (aliased from the service layer).
type StatusResponse = siteservice.Status

// PassListResponse wraps recent passes.
type PassListResponse struct {
	Passes []models.PassSummary `json:"passes" validate:"required"`
}

// EventListResponse wraps the events of a pass.
type EventListResponse struct {
	Events []models.Event `json:"events" validate:"required"`
}

// DocumentListResponse wraps published documents.
type DocumentListResponse struct {
	Documents []models.PublishedDocument `json:"documents" validate:"required"`
	Total     int                        `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []journal.SearchResult `json:"results" validate:"required"`
}

// PreviewResponse is a rendered note (aliased from the publisher).
type PreviewResponse = publisher.Rendered

// SyncResponse is returned when a pass is requested without waiting.
type SyncResponse struct {
	// Queued is false when the request merged into one already pending.
	Queued bool `json:"queued" example:"true"`
}
