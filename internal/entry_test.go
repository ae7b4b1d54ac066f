package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/herald/internal/apperr"
	"github.com/starford/herald/internal/sse"
	"github.com/starford/herald/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Source.Path = t.TempDir()
	cfg.Site.RepoPath = filepath.Join(t.TempDir(), "site")
	cfg.Journal.Path = filepath.Join(t.TempDir(), "herald.db")
	cfg.Git.Enabled = false
	cfg.App.HTTP.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

const publishedNote = "---\ntags: [публикация, go]\ntitle: Hello\n---\n# Hello\n\nBody text.\n"

func TestSyncOnce_PublishesNote(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Source.Path, "notes/hello.md", publishedNote)
	testutil.WriteFile(t, cfg.Source.Path, "draft.md", "no tags here\n")

	s, err := SyncOnce(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if s.Published != 1 || s.Written != 1 {
		t.Errorf("summary = %+v", s)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Site.RepoPath, "content/blog/hello.md"))
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	if !strings.Contains(string(data), `title: "Hello"`) || !strings.Contains(string(data), "Body text.") {
		t.Errorf("unexpected document:\n%s", data)
	}

	// The journal survives the process: a second run sees the first.
	s, err = SyncOnce(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if s.ID < 2 || s.Written != 0 || s.Unchanged != 1 {
		t.Errorf("second summary = %+v", s)
	}
}

func TestSyncOnce_MissingSourceFailsPass(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Path = filepath.Join(t.TempDir(), "absent")

	s, err := SyncOnce(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if s == nil || s.Error == "" {
		t.Errorf("failed pass should still be summarised: %+v", s)
	}
}

func TestPreview_WritesDocument(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Source.Path, "hello.md", publishedNote)

	var buf bytes.Buffer
	if err := Preview(context.Background(), "hello.md", &buf, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "---\n") || !strings.Contains(buf.String(), "author: JerTheFox") {
		t.Errorf("unexpected preview:\n%s", buf.String())
	}
	for _, p := range []string{cfg.Site.RepoPath, cfg.Journal.Path} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("preview created %s", p)
		}
	}

	for _, path := range []string{"absent.md", "../hello.md"} {
		err := Preview(context.Background(), path, &buf, WithConfig(cfg), WithLogOutput(io.Discard))
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", path, err)
		}
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}

func TestRouter_Health(t *testing.T) {
	cfg := testConfig(t)
	st, err := buildStack(context.Background(), cfg, testutil.Logger)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	broker := sse.NewBroker(0)
	defer broker.Close()

	srv := httptest.NewServer(newRouter(st, broker))
	defer srv.Close()

	for _, path := range []string{"/health/live", "/health/ready", "/api/status"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
	}
}
