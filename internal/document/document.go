// Package document assembles published documents and compares them for change
// detection.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	fence = "---"
	// DateLayout is used when the publish date comes from the file timestamp.
	DateLayout = "2006-01-02"
)

// dateLineRe: a line starting with "date: ".
var dateLineRe = regexp.MustCompile(`(?m)^date: .*$`)

// Header is the metadata emitted at the top of a published document.
type Header struct {
	Date   string
	Author string
	Tags   []string
	Title  string
}

// Assemble renders the metadata header followed by the trimmed body. Keys are
// emitted in a fixed order (date, params.author, draft, tags, title) so the
// output is stable across runs.
func Assemble(h Header, body string) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		root.Content = append(root.Content, scalar(key, 0), value)
	}

	add("date", scalar(h.Date, 0))
	add("params", &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{scalar("author", 0), scalar(h.Author, 0)},
	})
	add("draft", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"})

	tags := &yaml.Node{Kind: yaml.SequenceNode}
	for _, t := range h.Tags {
		tags.Content = append(tags.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t})
	}
	add("tags", tags)
	add("title", scalar(h.Title, yaml.DoubleQuotedStyle))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("document: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("document: encode header: %w", err)
	}

	var out strings.Builder
	out.WriteString(fence + "\n")
	out.Write(buf.Bytes())
	out.WriteString(fence + "\n")
	out.WriteString(strings.TrimSpace(body))
	return out.String(), nil
}

func scalar(value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value, Style: style}
}

// ResolveDate returns the metadata date verbatim when present, otherwise the
// modification time formatted as an ISO-8601 date.
func ResolveDate(metaDate string, modTime time.Time) string {
	if d := strings.TrimSpace(metaDate); d != "" {
		return d
	}
	return modTime.Format(DateLayout)
}

// ResolveTitle returns the metadata title, else the file name without its
// extension, else the file name itself.
func ResolveTitle(metaTitle, filename string) string {
	if t := strings.TrimSpace(metaTitle); t != "" {
		return t
	}
	if stem := strings.TrimSuffix(filename, filepath.Ext(filename)); stem != "" {
		return stem
	}
	return filename
}

// Normalize blanks every "date: " line so documents differing only in their
// publish date compare equal.
func Normalize(text string) string {
	return dateLineRe.ReplaceAllString(text, "")
}

// Equal reports whether a and b are the same document ignoring the date line.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Checksum fingerprints text ignoring the date line, so it changes exactly
// when Equal would report a difference.
func Checksum(text string) string {
	h := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(h[:])
}
