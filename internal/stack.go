package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/herald/internal/gitsync"
	"github.com/starford/herald/internal/journal"
	"github.com/starford/herald/internal/publisher"
	"github.com/starford/herald/internal/runner"
	"github.com/starford/herald/internal/siteservice"
	"github.com/starford/herald/internal/storage"
)

// stack holds the services every command is built from.
type stack struct {
	cfg       *Config
	logger    *slog.Logger
	publisher *publisher.Publisher
	journal   *journal.DB
	runner    *runner.Runner
	service   *siteservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildStack opens the journal, makes sure the site repository exists
// (cloning it when git is enabled) and wires the publisher, runner and
// service over them. extra options are appended to the runner's.
func buildStack(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...runner.Option) (*stack, error) {
	runOpts := []runner.Option{runner.WithInterval(cfg.Sync.Interval)}

	if cfg.Git.Enabled {
		repo, err := gitsync.New(cfg.Git.Options(cfg.Site.RepoPath, cfg.Site.RepoURL), logger)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(filepath.Join(cfg.Site.RepoPath, ".git")); errors.Is(err, os.ErrNotExist) {
			logger.Info("cloning site repository", slog.String("path", cfg.Site.RepoPath))
			if err := repo.Prepare(ctx); err != nil {
				return nil, fmt.Errorf("clone site repository: %w", err)
			}
		}
		runOpts = append(runOpts, runner.WithRepository(repo))
	} else if err := os.MkdirAll(cfg.Site.RepoPath, 0o755); err != nil {
		return nil, fmt.Errorf("create site dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Site.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	runOpts = append(runOpts, runner.WithJournal(db, cfg.Journal.KeepPasses))

	pub := newPublisher(cfg, store, logger)

	run := runner.New(pub, logger, append(runOpts, extra...)...)
	svc := siteservice.NewService(run, db, pub, siteservice.Paths{
		SourceRoot: cfg.Source.Path,
		RepoRoot:   store.Root(),
	})

	return &stack{
		cfg:       cfg,
		logger:    logger,
		publisher: pub,
		journal:   db,
		runner:    run,
		service:   svc,
	}, nil
}

// newPublisher wires a publisher over store. A nil store is enough for
// previews, which never touch the repository.
func newPublisher(cfg *Config, store storage.Provider, logger *slog.Logger) *publisher.Publisher {
	return publisher.New(publisher.Options{
		SourceRoot: cfg.Source.Path,
		Layout:     cfg.Site.Layout(),
		Policy:     cfg.Publish.Policy(),
		Author:     cfg.Site.Author,
	}, store, logger)
}

func (s *stack) Close() {
	if err := s.journal.Close(); err != nil {
		s.logger.Warn("close journal failed", slog.String("error", err.Error()))
	}
}
