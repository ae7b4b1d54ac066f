// Package runner schedules publishing passes: one at start-up, one per
// interval tick and one per trigger, never two at the same time.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/herald/internal/models"
)

// Syncer runs one publishing pass.
type Syncer interface {
	Sync(ctx context.Context) (*models.PassReport, error)
}

// Repository brings the site repository up to date before a pass and
// publishes its changes after one.
type Repository interface {
	Prepare(ctx context.Context) error
	Publish(ctx context.Context) (bool, error)
}

// Recorder persists finished passes.
type Recorder interface {
	RecordPass(r *models.PassReport) (int64, error)
	Prune(keep int) error
}

// Notifier is told about every finished pass.
type Notifier interface {
	PublishPass(s models.PassSummary)
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithInterval sets the period between scheduled passes. Zero disables the
// schedule; passes then only run on start-up and on Trigger.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.interval = d
	}
}

// WithRepository enables pulling before and pushing after each pass.
func WithRepository(repo Repository) Option {
	return func(r *Runner) {
		r.repo = repo
	}
}

// WithJournal records each pass and keeps at most keep passes.
func WithJournal(j Recorder, keep int) Option {
	return func(r *Runner) {
		r.journal = j
		r.keep = keep
	}
}

// WithNotifier sets the pass notifier.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) {
		r.notify = n
	}
}

// Runner serialises publishing passes.
type Runner struct {
	syncer   Syncer
	logger   *slog.Logger
	interval time.Duration
	repo     Repository
	journal  Recorder
	keep     int
	notify   Notifier

	passMu  sync.Mutex
	trigger chan struct{}

	stateMu sync.RWMutex
	last    *models.PassReport
	running bool
}

// New creates a Runner around syncer.
func New(syncer Syncer, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		syncer:  syncer,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce runs a single pass, waiting for any pass in progress to finish
// first. Repository and journal failures are logged, not returned.
func (r *Runner) RunOnce(ctx context.Context) (*models.PassReport, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	r.setRunning(true)
	defer r.setRunning(false)

	started := time.Now()
	if r.repo != nil {
		if err := r.repo.Prepare(ctx); err != nil {
			r.logger.Warn("runner: prepare repository failed", slog.String("error", err.Error()))
		}
	}

	report, err := r.syncer.Sync(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.logger.Info("runner: pass cancelled")
			return nil, err
		}
		r.logger.Error("runner: pass failed", slog.String("error", err.Error()))
		report = &models.PassReport{
			StartedAt:  started,
			FinishedAt: time.Now(),
			Published:  []models.PublishedDocument{},
			Error:      err.Error(),
		}
	} else if r.repo != nil {
		committed, pubErr := r.repo.Publish(ctx)
		if pubErr != nil {
			r.logger.Error("runner: publish repository failed", slog.String("error", pubErr.Error()))
		} else if committed {
			r.logger.Info("runner: changes pushed")
		}
	}

	if r.journal != nil {
		if _, jErr := r.journal.RecordPass(report); jErr != nil {
			r.logger.Warn("runner: record pass failed", slog.String("error", jErr.Error()))
		} else if pErr := r.journal.Prune(r.keep); pErr != nil {
			r.logger.Warn("runner: prune journal failed", slog.String("error", pErr.Error()))
		}
	}

	// Passes that change nothing are routine; keep them out of info logs.
	level := slog.LevelInfo
	if report.Error == "" && !report.Changed() {
		level = slog.LevelDebug
	}
	s := report.Summary()
	r.logger.Log(ctx, level, "runner: pass finished",
		slog.Bool("changed", report.Changed()),
		slog.Int("published", s.Published),
		slog.Int("written", s.Written),
		slog.Int("deleted", s.Deleted),
		slog.Int("failed", s.Failed),
		slog.Duration("took", s.FinishedAt.Sub(s.StartedAt)))

	if r.notify != nil {
		r.notify.PublishPass(s)
	}

	r.stateMu.Lock()
	r.last = report
	r.stateMu.Unlock()

	return report, err
}

// Trigger requests a pass as soon as possible. Requests made while one is
// already pending coalesce; the return value reports whether this call
// queued a new one.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run runs a pass immediately, then on every tick and trigger until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.logger.Info("runner: started", slog.Duration("interval", r.interval))
	_, _ = r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner: stopped")
			return nil
		case <-tick:
			_, _ = r.RunOnce(ctx)
		case <-r.trigger:
			_, _ = r.RunOnce(ctx)
		}
	}
}

// Last returns the report of the most recent pass, or nil.
func (r *Runner) Last() *models.PassReport {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.last
}

// Running reports whether a pass is in progress.
func (r *Runner) Running() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.running
}

func (r *Runner) setRunning(v bool) {
	r.stateMu.Lock()
	r.running = v
	r.stateMu.Unlock()
}
