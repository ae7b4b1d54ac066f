// Package assets indexes attachment files of the source tree by basename and
// copies them into the site.
package assets

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// vcsDirs are version-control metadata directories skipped during walks.
var vcsDirs = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
}

// SkipDir reports whether a directory entry is version-control metadata.
func SkipDir(name string) bool {
	_, ok := vcsDirs[name]
	return ok
}

// Index maps file basenames (spaces preserved) to absolute source paths.
// It is built once per pass and read-only afterwards.
type Index struct {
	paths      map[string]string
	collisions []string
}

// Build walks root and indexes every regular file by basename. When two files
// share a basename the one visited last in lexical walk order wins.
func Build(root string) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve root: %w", err)
	}
	idx := &Index{paths: make(map[string]string)}
	seen := make(map[string]struct{})
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != abs && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if _, dup := idx.paths[name]; dup {
			if _, reported := seen[name]; !reported {
				seen[name] = struct{}{}
				idx.collisions = append(idx.collisions, name)
			}
		}
		idx.paths[name] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assets: walk %s: %w", abs, err)
	}
	sort.Strings(idx.collisions)
	return idx, nil
}

// NewIndex builds an Index from an explicit mapping.
func NewIndex(paths map[string]string) *Index {
	idx := &Index{paths: make(map[string]string, len(paths))}
	for k, v := range paths {
		idx.paths[k] = v
	}
	return idx
}

// Lookup returns the source path for basename. Names that only differ in
// Unicode normalisation form (NFC vs NFD) resolve to the same file.
func (i *Index) Lookup(basename string) (string, bool) {
	if i == nil {
		return "", false
	}
	if p, ok := i.paths[basename]; ok {
		return p, true
	}
	if p, ok := i.paths[norm.NFC.String(basename)]; ok {
		return p, true
	}
	if p, ok := i.paths[norm.NFD.String(basename)]; ok {
		return p, true
	}
	return "", false
}

// Len returns the number of indexed basenames.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.paths)
}

// Collisions returns the basenames that matched more than one file.
func (i *Index) Collisions() []string {
	if i == nil {
		return nil
	}
	return append([]string(nil), i.collisions...)
}
