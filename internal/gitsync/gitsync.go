// Package gitsync keeps the site repository in step with its remote: it clones
// or pulls before a pass and commits and pushes after one.
package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoRepository is returned when the site directory is not a git working
// tree and no remote URL is configured to clone it from.
var ErrNoRepository = errors.New("gitsync: site directory is not a git repository")

// Options configures a Repo.
type Options struct {
	Path          string // working tree
	URL           string // cloned when Path has no repository
	Remote        string
	Branch        string // empty pushes and pulls the current branch
	CommitMessage string
	UserName      string
	UserEmail     string
}

// Repo drives the git executable against one working tree.
type Repo struct {
	exe    string
	opts   Options
	logger *slog.Logger
}

// New locates git on $PATH.
func New(opts Options, logger *slog.Logger) (*Repo, error) {
	exe, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.New("gitsync: executable 'git' not found in $PATH")
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.CommitMessage == "" {
		opts.CommitMessage = "Auto-publish from Obsidian"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repo{exe: exe, opts: opts, logger: logger}, nil
}

// Prepare clones the repository when the working tree is missing, otherwise
// pulls from the remote.
func (r *Repo) Prepare(ctx context.Context) error {
	if r.isRepo() {
		args := []string{"pull", "--no-rebase", r.opts.Remote}
		if r.opts.Branch != "" {
			args = append(args, r.opts.Branch)
		}
		if _, err := r.run(ctx, r.opts.Path, args...); err != nil {
			return err
		}
		r.logger.Debug("gitsync: pulled", slog.String("path", r.opts.Path))
		return nil
	}

	if r.opts.URL == "" {
		return fmt.Errorf("%w: %s", ErrNoRepository, r.opts.Path)
	}
	if err := os.MkdirAll(filepath.Dir(r.opts.Path), 0o755); err != nil {
		return fmt.Errorf("gitsync: mkdir: %w", err)
	}
	args := []string{"clone"}
	if r.opts.Branch != "" {
		args = append(args, "--branch", r.opts.Branch)
	}
	args = append(args, r.opts.URL, r.opts.Path)
	if _, err := r.run(ctx, "", args...); err != nil {
		return err
	}
	r.logger.Info("gitsync: cloned", slog.String("url", r.opts.URL), slog.String("path", r.opts.Path))
	return nil
}

// Publish stages every change in the working tree and, when anything is
// staged, commits and pushes it. It reports whether a commit was made.
func (r *Repo) Publish(ctx context.Context) (bool, error) {
	if !r.isRepo() {
		return false, fmt.Errorf("%w: %s", ErrNoRepository, r.opts.Path)
	}
	if _, err := r.run(ctx, r.opts.Path, "add", "-A", "."); err != nil {
		return false, err
	}
	status, err := r.run(ctx, r.opts.Path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(status) == "" {
		return false, nil
	}
	if _, err := r.run(ctx, r.opts.Path, "commit", "-m", r.opts.CommitMessage); err != nil {
		return false, err
	}

	ref := "HEAD"
	if r.opts.Branch != "" {
		ref = "HEAD:" + r.opts.Branch
	}
	if _, err := r.run(ctx, r.opts.Path, "push", r.opts.Remote, ref); err != nil {
		return true, err
	}
	r.logger.Info("gitsync: pushed", slog.String("remote", r.opts.Remote), slog.String("ref", ref))
	return true, nil
}

func (r *Repo) isRepo() bool {
	_, err := os.Stat(filepath.Join(r.opts.Path, ".git"))
	return err == nil
}

// run executes git with the configured identity. Prompts are disabled so a
// missing credential fails instead of blocking the pass.
func (r *Repo) run(ctx context.Context, dir string, args ...string) (string, error) {
	var full []string
	if r.opts.UserName != "" {
		full = append(full, "-c", "user.name="+r.opts.UserName)
	}
	if r.opts.UserEmail != "" {
		full = append(full, "-c", "user.email="+r.opts.UserEmail)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, r.exe, full...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gitsync: git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
