// Package testutil provides shared test helpers for setting up notes trees,
// site repositories and journals.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/herald/internal/journal"
	"github.com/starford/herald/internal/policy"
	"github.com/starford/herald/internal/publisher"
	"github.com/starford/herald/internal/runner"
	"github.com/starford/herald/internal/siteservice"
	"github.com/starford/herald/internal/storage"
)

// Logger discards everything.
var Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// TestJournal creates a temporary SQLite journal that is automatically
// cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "herald-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Site is a complete publishing stack over temporary directories, without
// git.
type Site struct {
	Source    string
	Repo      string
	Publisher *publisher.Publisher
	Journal   *journal.DB
	Runner    *runner.Runner
	Service   *siteservice.Service
}

// NewSite creates an empty notes tree, an empty site repository and the
// services over them.
func NewSite(t *testing.T) *Site {
	t.Helper()
	src := t.TempDir()
	repo := t.TempDir()
	store, err := storage.NewFS(repo)
	if err != nil {
		t.Fatal(err)
	}
	pub := publisher.New(publisher.Options{
		SourceRoot: src,
		Layout:     publisher.DefaultLayout(),
		Policy:     policy.Default(),
		Author:     "JerTheFox",
	}, store, Logger)
	db := TestJournal(t)
	run := runner.New(pub, Logger, runner.WithJournal(db, 0))
	svc := siteservice.NewService(run, db, pub, siteservice.Paths{SourceRoot: src, RepoRoot: repo})
	return &Site{Source: src, Repo: repo, Publisher: pub, Journal: db, Runner: run, Service: svc}
}

// Note writes a note into the source tree.
func (s *Site) Note(t *testing.T, rel, content string) {
	t.Helper()
	WriteFile(t, s.Source, rel, content)
}
