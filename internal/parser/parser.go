// Package parser splits wiki-style Markdown notes into metadata and body and
// extracts their tag vocabulary.
package parser

import (
	"regexp"
	"strings"
)

var (
	// metadataRe recognises a leading metadata block:
	//
	//	---\n <block> \n---\n <body>
	//
	// The closing fence must be followed by a line break.
	metadataRe = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n(.*)\z`)

	// keyRe recognises a top-level "key: value" line inside the metadata block.
	keyRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*):[ \t]*(.*?)[ \t]*$`)

	// listItemRe recognises an indented block list item: [ \t]* - [ \t]* <item>
	listItemRe = regexp.MustCompile(`^[ \t]*-[ \t]*(.+?)[ \t]*$`)

	// inlineTagRe recognises an inline tag token: (start | whitespace) '#' [letters digits _ / -]+
	inlineTagRe = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{N}_/-]+)`)
)

// Metadata holds the fields read from a note's metadata block.
type Metadata struct {
	Tags  []string
	Date  string
	Title string
}

// Result holds the output of parsing a note.
type Result struct {
	// Metadata is nil when the note has no metadata block.
	Metadata   *Metadata
	Body       string
	InlineTags []string
}

// Tags returns metadata tags followed by inline tag tokens.
func (r *Result) Tags() []string {
	var out []string
	if r.Metadata != nil {
		out = append(out, r.Metadata.Tags...)
	}
	return append(out, r.InlineTags...)
}

// Parse splits raw note bytes and extracts metadata fields and inline tags.
func Parse(data []byte) *Result {
	block, body, ok := Split(string(data))
	res := &Result{Body: body, InlineTags: InlineTags(body)}
	if ok {
		md := ParseMetadata(block)
		res.Metadata = &md
	}
	return res
}

// Split separates the metadata block from the body. When the text does not
// start with a complete metadata block, ok is false and body is the whole text.
func Split(raw string) (block, body string, ok bool) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	m := metadataRe.FindStringSubmatch(text)
	if m == nil {
		return "", text, false
	}
	return m[1], m[2], true
}

// ParseMetadata reads the tags, date and title keys from a metadata block.
// Tags may be given as an indented block list, a flow list ("[a, b]") or a
// comma separated scalar. Date is kept verbatim; quotes around date and title
// are removed.
func ParseMetadata(block string) Metadata {
	var md Metadata
	lines := strings.Split(block, "\n")
	for i := 0; i < len(lines); i++ {
		m := keyRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		key, value := m[1], m[2]
		switch key {
		case "tags":
			if value != "" {
				md.Tags = append(md.Tags, splitInlineList(value)...)
				continue
			}
			for i+1 < len(lines) && isListContinuation(lines[i+1]) {
				i++
				if item := listItemRe.FindStringSubmatch(lines[i]); item != nil {
					if t := unquote(item[1]); t != "" {
						md.Tags = append(md.Tags, t)
					}
				}
			}
		case "date":
			md.Date = unquote(value)
		case "title":
			md.Title = unquote(value)
		}
	}
	return md
}

// InlineTags returns the distinct inline tag tokens of body in order of first
// appearance, with the leading '#' retained.
func InlineTags(body string) []string {
	matches := inlineTagRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// isListContinuation reports whether line still belongs to a block list.
func isListContinuation(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case ' ', '\t', '-':
		return true
	}
	return false
}

func splitInlineList(value string) []string {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		v = v[1 : len(v)-1]
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if t := unquote(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
}
