// Package models defines the domain types for herald.
package models

import "time"

// SourceNote is a note file found in the source tree during a pass.
type SourceNote struct {
	Path    string    `json:"path"` // absolute path
	Name    string    `json:"name"` // file name, also the destination name
	ModTime time.Time `json:"mod_time"`
}

// EventKind classifies what happened to a note or asset during a pass.
type EventKind string

const (
	EventWritten      EventKind = "written"
	EventUnchanged    EventKind = "unchanged"
	EventDeleted      EventKind = "deleted"
	EventFailed       EventKind = "failed"
	EventAssetMissing EventKind = "asset_missing"
	EventAssetCopied  EventKind = "asset_copied"
	EventCollision    EventKind = "collision"
)

// Event is one observable outcome of a pass.
type Event struct {
	Kind   EventKind `json:"kind"`
	Name   string    `json:"name"`
	Source string    `json:"source,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// PublishedDocument describes a destination document produced by a pass.
type PublishedDocument struct {
	Name     string   `json:"name"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Checksum string   `json:"checksum"`
	Body     string   `json:"-"` // assembled document text
}

// PassReport summarises one synchronisation pass.
type PassReport struct {
	ID         int64               `json:"id,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Published  []PublishedDocument `json:"published"`
	Events     []Event             `json:"events"`
	Error      string              `json:"error,omitempty"`
}

// Count returns the number of events of the given kind.
func (r *PassReport) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Changed reports whether the pass modified the destination.
func (r *PassReport) Changed() bool {
	return r.Count(EventWritten)+r.Count(EventDeleted)+r.Count(EventAssetCopied) > 0
}

// PublishedNames returns the active set: destination names produced as
// eligible in this pass.
func (r *PassReport) PublishedNames() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Published))
	for _, d := range r.Published {
		out[d.Name] = struct{}{}
	}
	return out
}

// PassSummary is the journaled outline of a pass without its events.
type PassSummary struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Published  int       `json:"published"`
	Written    int       `json:"written"`
	Unchanged  int       `json:"unchanged"`
	Deleted    int       `json:"deleted"`
	Failed     int       `json:"failed"`
	Missing    int       `json:"missing"`
	Error      string    `json:"error,omitempty"`
}

// Summary returns the outline of r.
func (r *PassReport) Summary() PassSummary {
	return PassSummary{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Published:  len(r.Published),
		Written:    r.Count(EventWritten),
		Unchanged:  r.Count(EventUnchanged),
		Deleted:    r.Count(EventDeleted),
		Failed:     r.Count(EventFailed),
		Missing:    r.Count(EventAssetMissing),
		Error:      r.Error,
	}
}
