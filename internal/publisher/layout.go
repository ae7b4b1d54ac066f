package publisher

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/herald/internal/assets"
	"github.com/starford/herald/internal/models"
	"github.com/starford/herald/internal/storage"
)

// Layout locates published content inside the site repository.
type Layout struct {
	ContentDir  string // documents, relative to the repository root
	ImagesDir   string // embedded images, relative to the repository root
	FilesDir    string // linked attachments, relative to the repository root
	ImagePrefix string // public URL prefix of ImagesDir
	FilesPrefix string // public URL prefix of FilesDir
	LinkPrefix  string // public URL prefix of documents
	IndexFile   string // section index document, never collected
}

// DefaultLayout returns the Hugo blog layout.
func DefaultLayout() Layout {
	return Layout{
		ContentDir:  "content/blog",
		ImagesDir:   "static/images/blog",
		FilesDir:    "static/files/blog",
		ImagePrefix: "/images/blog/",
		FilesPrefix: "/files/blog/",
		LinkPrefix:  "/blog/",
		IndexFile:   "_index.md",
	}
}

// DocumentPath returns the repository-relative path of a published document.
func (l Layout) DocumentPath(name string) string {
	return path.Join(l.ContentDir, name)
}

func (l Layout) target(kind assets.Kind) (dir, prefix string) {
	if kind == assets.KindImage {
		return l.ImagesDir, l.ImagePrefix
	}
	return l.FilesDir, l.FilesPrefix
}

// siteSink copies assets into the repository and returns their public URLs.
// A dry-run sink only computes URLs.
type siteSink struct {
	store  storage.Provider
	layout Layout
	dryRun bool
	emit   func(models.Event)
}

func (s *siteSink) Place(kind assets.Kind, src string) (string, error) {
	name := assets.PublicName(filepath.Base(src))
	dir, prefix := s.layout.target(kind)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	u := prefix + name
	if s.dryRun {
		return u, nil
	}
	dst, err := s.store.Abs(path.Join(dir, name))
	if err != nil {
		return "", err
	}
	copied, err := assets.CopyIfChanged(src, dst)
	if err != nil {
		return "", err
	}
	if copied && s.emit != nil {
		s.emit(models.Event{Kind: models.EventAssetCopied, Name: name, Source: src})
	}
	return u, nil
}
