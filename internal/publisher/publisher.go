// Package publisher synchronises the site content directory with the set of
// notes currently marked for publication.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/herald/internal/apperr"
	"github.com/starford/herald/internal/assets"
	"github.com/starford/herald/internal/document"
	"github.com/starford/herald/internal/models"
	"github.com/starford/herald/internal/parser"
	"github.com/starford/herald/internal/policy"
	"github.com/starford/herald/internal/storage"
	"github.com/starford/herald/internal/transform"
)

// Options configures a Publisher.
type Options struct {
	SourceRoot string
	Layout     Layout
	Policy     policy.Policy
	Author     string
}

// EventFunc receives every event of a pass as it happens.
type EventFunc func(models.Event)

// Publisher runs synchronisation passes from a source tree into a site
// repository. A Publisher is not safe for concurrent passes; callers
// serialise Sync calls.
type Publisher struct {
	opts    Options
	store   storage.Provider
	logger  *slog.Logger
	onEvent EventFunc
}

// New creates a Publisher writing through store. Preview never uses the
// store, so it may be nil for a publisher that only previews.
func New(opts Options, store storage.Provider, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{opts: opts, store: store, logger: logger}
}

// SetEventHandler registers fn to receive pass events.
func (p *Publisher) SetEventHandler(fn EventFunc) {
	p.onEvent = fn
}

// Rendered is the assembled output of one eligible note.
type Rendered struct {
	Note    models.SourceNote `json:"note"`
	Text    string            `json:"text"`
	Title   string            `json:"title"`
	Tags    []string          `json:"tags"`
	Missing []string          `json:"missing,omitempty"`
}

// Sync runs one full pass: index assets, render every eligible note, write
// changed documents, then delete documents whose note is no longer eligible.
// A failing note is reported and skipped. Cancelling ctx aborts the pass
// before the deletion sweep.
func (p *Publisher) Sync(ctx context.Context) (*models.PassReport, error) {
	report := &models.PassReport{StartedAt: time.Now(), Published: []models.PublishedDocument{}}
	emit := func(e models.Event) {
		if e.At.IsZero() {
			e.At = time.Now()
		}
		report.Events = append(report.Events, e)
		if p.onEvent != nil {
			p.onEvent(e)
		}
	}

	idx, err := assets.Build(p.opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}
	p.logger.Debug("publisher: assets indexed", slog.Int("assets", idx.Len()))
	for _, name := range idx.Collisions() {
		p.logger.Warn("publisher: asset basename collision", slog.String("name", name))
		emit(models.Event{Kind: models.EventCollision, Name: name, Detail: "asset"})
	}

	notes, err := p.collectNotes()
	if err != nil {
		return nil, err
	}

	sink := &siteSink{store: p.store, layout: p.opts.Layout, emit: emit}
	active := make(map[string]int)

	for _, note := range notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := p.Render(note, idx, sink)
		if errors.Is(err, apperr.ErrNotEligible) {
			p.logger.Debug("publisher: skipped", slog.String("path", note.Path))
			continue
		}
		if err != nil {
			p.logger.Warn("publisher: note failed", slog.String("path", note.Path), slog.String("error", err.Error()))
			emit(models.Event{Kind: models.EventFailed, Name: note.Name, Source: note.Path, Detail: err.Error()})
			continue
		}
		for _, m := range r.Missing {
			p.logger.Warn("publisher: asset not found", slog.String("path", note.Path), slog.String("asset", m))
			emit(models.Event{Kind: models.EventAssetMissing, Name: m, Source: note.Path})
		}

		if i, dup := active[note.Name]; dup {
			p.logger.Warn("publisher: note name collision",
				slog.String("name", note.Name),
				slog.String("previous", report.Published[i].Source),
				slog.String("path", note.Path))
			emit(models.Event{Kind: models.EventCollision, Name: note.Name, Source: note.Path, Detail: "note"})
		}

		changed, err := p.writeIfChanged(note.Name, r.Text)
		if err != nil {
			p.logger.Warn("publisher: write failed", slog.String("name", note.Name), slog.String("error", err.Error()))
			emit(models.Event{Kind: models.EventFailed, Name: note.Name, Source: note.Path, Detail: err.Error()})
			continue
		}
		if changed {
			p.logger.Info("publisher: written", slog.String("name", note.Name))
			emit(models.Event{Kind: models.EventWritten, Name: note.Name, Source: note.Path})
		} else {
			p.logger.Debug("publisher: unchanged", slog.String("name", note.Name))
			emit(models.Event{Kind: models.EventUnchanged, Name: note.Name, Source: note.Path})
		}

		doc := models.PublishedDocument{
			Name:     note.Name,
			Source:   note.Path,
			Title:    r.Title,
			Tags:     r.Tags,
			Checksum: document.Checksum(r.Text),
			Body:     r.Text,
		}
		if i, dup := active[note.Name]; dup {
			report.Published[i] = doc
		} else {
			active[note.Name] = len(report.Published)
			report.Published = append(report.Published, doc)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.collect(report.PublishedNames(), emit)

	report.FinishedAt = time.Now()
	return report, nil
}

// Render parses, filters, transforms and assembles one note. It returns an
// error wrapping apperr.ErrRejected or apperr.ErrNotEligible for notes that
// are not published.
func (p *Publisher) Render(note models.SourceNote, idx *assets.Index, sink transform.Sink) (*Rendered, error) {
	if policy.RejectedName(note.Name) {
		return nil, fmt.Errorf("%s: %w", note.Name, apperr.ErrRejected)
	}
	data, err := os.ReadFile(note.Path)
	if err != nil {
		return nil, fmt.Errorf("publisher: read %s: %w", note.Path, err)
	}

	parsed := parser.Parse(data)
	if !p.opts.Policy.IsEligible(parsed.Tags()) {
		return nil, fmt.Errorf("%s: %w", note.Name, apperr.ErrNotEligible)
	}

	var metaTags []string
	var metaDate, metaTitle string
	if md := parsed.Metadata; md != nil {
		metaTags, metaDate, metaTitle = md.Tags, md.Date, md.Title
	}

	tr := transform.New(idx, sink, p.opts.Policy, p.opts.Layout.LinkPrefix)
	res, err := tr.Transform(note.Path, parsed.Body, parsed.InlineTags, metaTags)
	if err != nil {
		return nil, err
	}

	title := document.ResolveTitle(metaTitle, note.Name)
	text, err := document.Assemble(document.Header{
		Date:   document.ResolveDate(metaDate, note.ModTime),
		Author: p.opts.Author,
		Tags:   res.Tags,
		Title:  title,
	}, res.Body)
	if err != nil {
		return nil, err
	}

	return &Rendered{Note: note, Text: text, Title: title, Tags: res.Tags, Missing: res.Missing}, nil
}

// Preview renders the note at path (absolute or relative to the source
// root) without copying any asset or writing any document. Paths that
// resolve outside the source root or do not name a Markdown file are
// reported as not found.
func (p *Publisher) Preview(ctx context.Context, path string) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := p.sourcePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("publisher: stat %s: %w", path, err)
	}
	idx, err := assets.Build(p.opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}
	note := models.SourceNote{Path: abs, Name: info.Name(), ModTime: info.ModTime()}
	return p.Render(note, idx, &siteSink{store: p.store, layout: p.opts.Layout, dryRun: true})
}

// sourcePath resolves path against the source root and rejects anything
// that is not a Markdown file inside it.
func (p *Publisher) sourcePath(path string) (string, error) {
	notFound := fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
	if !strings.HasSuffix(path, ".md") {
		return "", notFound
	}
	root, err := filepath.Abs(p.opts.SourceRoot)
	if err != nil {
		return "", fmt.Errorf("publisher: resolve source root: %w", err)
	}
	abs := filepath.Clean(path)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", notFound
	}
	return abs, nil
}

// collectNotes lists every Markdown note under the source root in lexical
// walk order, skipping version-control directories and rejected names.
func (p *Publisher) collectNotes() ([]models.SourceNote, error) {
	root := p.opts.SourceRoot
	var notes []models.SourceNote
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && assets.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".md") || policy.RejectedName(name) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		notes = append(notes, models.SourceNote{Path: abs, Name: name, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("publisher: walk %s: %w", root, err)
	}
	return notes, nil
}

// writeIfChanged writes text unless the existing document is equal to it
// ignoring the date line. It reports whether a write happened.
func (p *Publisher) writeIfChanged(name, text string) (bool, error) {
	dest := p.opts.Layout.DocumentPath(name)
	existing, err := p.store.Read(dest)
	if err == nil && document.Equal(string(existing), text) {
		return false, nil
	}
	if err := p.store.Write(dest, []byte(text)); err != nil {
		return false, err
	}
	return true, nil
}

// collect deletes every document in the content directory that is neither
// the index file nor in the active set.
func (p *Publisher) collect(active map[string]struct{}, emit func(models.Event)) {
	names, err := p.store.ListMarkdown(p.opts.Layout.ContentDir)
	if err != nil {
		p.logger.Warn("publisher: list content failed", slog.String("error", err.Error()))
		return
	}
	for _, name := range names {
		if name == p.opts.Layout.IndexFile {
			continue
		}
		if _, ok := active[name]; ok {
			continue
		}
		if err := p.store.Delete(p.opts.Layout.DocumentPath(name)); err != nil {
			p.logger.Warn("publisher: delete failed", slog.String("name", name), slog.String("error", err.Error()))
			emit(models.Event{Kind: models.EventFailed, Name: name, Detail: err.Error()})
			continue
		}
		p.logger.Info("publisher: deleted", slog.String("name", name))
		emit(models.Event{Kind: models.EventDeleted, Name: name})
	}
}
