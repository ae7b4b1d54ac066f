// Package siteservice answers questions about the publishing state and
// starts passes on request. It backs both the REST API and the MCP server.
package siteservice

import (
	"context"
	"sort"

	"github.com/starford/herald/internal/journal"
	"github.com/starford/herald/internal/models"
	"github.com/starford/herald/internal/policy"
	"github.com/starford/herald/internal/publisher"
)

// Runner is the part of the pass scheduler the service drives.
type Runner interface {
	RunOnce(ctx context.Context) (*models.PassReport, error)
	Trigger() bool
	Last() *models.PassReport
	Running() bool
}

// Previewer renders a single note without publishing it.
type Previewer interface {
	Preview(ctx context.Context, path string) (*publisher.Rendered, error)
}

// Paths describes where the service reads from and publishes to.
type Paths struct {
	SourceRoot string `json:"source_root"`
	RepoRoot   string `json:"repo_root"`
}

// Status is a snapshot of the publisher state.
type Status struct {
	Paths
	Running   bool                `json:"running"`
	Published int                 `json:"published"`
	LastPass  *models.PassSummary `json:"last_pass,omitempty"`
}

// Service coordinates the runner, the journal and the previewer.
type Service struct {
	runner  Runner
	journal journal.Store
	preview Previewer
	paths   Paths
}

// NewService creates a new site service.
func NewService(runner Runner, store journal.Store, preview Previewer, paths Paths) *Service {
	return &Service{runner: runner, journal: store, preview: preview, paths: paths}
}

// Status returns the current publisher state. The last pass comes from the
// runner when this process has run one, else from the journal.
func (s *Service) Status(_ context.Context) (*Status, error) {
	docs, err := s.journal.Documents()
	if err != nil {
		return nil, err
	}
	st := &Status{Paths: s.paths, Running: s.runner.Running(), Published: len(docs)}

	if last := s.runner.Last(); last != nil {
		sum := last.Summary()
		st.LastPass = &sum
		return st, nil
	}
	recent, err := s.journal.RecentPasses(1)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		st.LastPass = &recent[0]
	}
	return st, nil
}

// RecentPasses returns up to limit passes, newest first.
func (s *Service) RecentPasses(_ context.Context, limit int) ([]models.PassSummary, error) {
	return s.journal.RecentPasses(limit)
}

// PassEvents returns the events of one pass.
func (s *Service) PassEvents(_ context.Context, id int64) ([]models.Event, error) {
	return s.journal.PassEvents(id)
}

// Documents lists published documents, optionally only those carrying tag.
func (s *Service) Documents(_ context.Context, tag string) ([]models.PublishedDocument, error) {
	docs, err := s.journal.Documents()
	if err != nil {
		return nil, err
	}
	tag = policy.Clean(tag)
	if tag == "" {
		return docs, nil
	}
	out := []models.PublishedDocument{}
	for _, d := range docs {
		if i := sort.SearchStrings(d.Tags, tag); i < len(d.Tags) && d.Tags[i] == tag {
			out = append(out, d)
		}
	}
	return out, nil
}

// Search finds published documents matching query.
func (s *Service) Search(_ context.Context, query string, limit int) ([]journal.SearchResult, error) {
	return s.journal.Search(query, limit)
}

// Preview renders the note at path as it would be published.
func (s *Service) Preview(ctx context.Context, path string) (*publisher.Rendered, error) {
	return s.preview.Preview(ctx, path)
}

// SyncNow runs a pass and waits for it.
func (s *Service) SyncNow(ctx context.Context) (*models.PassReport, error) {
	return s.runner.RunOnce(ctx)
}

// RequestSync queues a pass without waiting. It reports whether a new
// request was queued rather than merged into a pending one.
func (s *Service) RequestSync() bool {
	return s.runner.Trigger()
}
