package gitsync

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

func newRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	requireGit(t)
	base := t.TempDir()
	remote := filepath.Join(base, "remote.git")
	git(t, base, "init", "--bare", remote)

	r, err := New(Options{
		Path:      filepath.Join(base, "site"),
		URL:       remote,
		Branch:    "main",
		UserName:  "ObsidianBot",
		UserEmail: "bot@example.org",
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, remote
}

func TestPrepare_ClonesMissingRepository(t *testing.T) {
	r, remote := newRepo(t)
	// An empty remote has no "main" yet: seed it through a first publish.
	r.opts.Branch = ""
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !r.isRepo() {
		t.Fatal("working tree not cloned")
	}
	r.opts.Branch = "main"

	if err := os.WriteFile(filepath.Join(r.opts.Path, "post.md"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	committed, err := r.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !committed {
		t.Fatal("expected a commit")
	}
	log := git(t, remote, "log", "--format=%s %an", "main")
	if !strings.Contains(log, "Auto-publish from Obsidian ObsidianBot") {
		t.Errorf("remote log = %q", log)
	}

	// Nothing changed: no commit.
	committed, err = r.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if committed {
		t.Error("empty publish committed")
	}

	// The existing tree is pulled, not cloned again.
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare (pull): %v", err)
	}
}

func TestPrepare_NoRepositoryNoURL(t *testing.T) {
	requireGit(t)
	r, err := New(Options{Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Prepare(context.Background()); !errors.Is(err, ErrNoRepository) {
		t.Errorf("err = %v, want ErrNoRepository", err)
	}
	if _, err := r.Publish(context.Background()); !errors.Is(err, ErrNoRepository) {
		t.Errorf("err = %v, want ErrNoRepository", err)
	}
}
