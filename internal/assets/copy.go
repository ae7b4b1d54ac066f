package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
)

// Kind classifies an asset by extension.
type Kind int

const (
	// KindOther is any file that is neither an image nor a downloadable attachment.
	KindOther Kind = iota
	KindImage
	KindFile
)

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".bmp": {}, ".avif": {}, ".tif": {}, ".tiff": {},
}

var fileExts = map[string]struct{}{
	".pdf": {}, ".zip": {}, ".7z": {}, ".rar": {}, ".tar": {}, ".gz": {},
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".odt": {}, ".ods": {}, ".odp": {}, ".rtf": {}, ".csv": {}, ".txt": {},
	".epub": {}, ".mp3": {}, ".mp4": {}, ".mov": {}, ".wav": {}, ".ogg": {},
}

// Classify returns the kind of the file named name.
func Classify(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	if _, ok := fileExts[ext]; ok {
		return KindFile
	}
	return KindOther
}

// PublicName returns the published file name: spaces become underscores.
func PublicName(basename string) string {
	return strings.ReplaceAll(basename, " ", "_")
}

// CopyIfChanged copies src to dst unless dst already exists with the same
// byte size. Size equality is an approximate change check, not a content
// comparison. It reports whether a copy happened.
func CopyIfChanged(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("assets: stat %s: %w", src, err)
	}
	dstInfo, err := os.Stat(dst)
	switch {
	case err == nil:
		if dstInfo.Size() == srcInfo.Size() {
			return false, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("assets: stat %s: %w", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("assets: mkdir: %w", err)
	}
	if err := copy.Copy(src, dst, copy.Options{PreserveTimes: true}); err != nil {
		return false, fmt.Errorf("assets: copy %s: %w", src, err)
	}
	return true, nil
}
