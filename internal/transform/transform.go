// Package transform rewrites a note body from the wiki Markdown dialect into
// site Markdown: leading heading removal, embedded images, links and
// attachments, inline tag removal and content tag selection.
package transform

import (
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/starford/herald/internal/assets"
	"github.com/starford/herald/internal/policy"
	"github.com/starford/herald/internal/slug"
)

// Sink places a source asset into the site and returns its public URL.
type Sink interface {
	Place(kind assets.Kind, source string) (string, error)
}

// Transformer rewrites note bodies against one pass's asset index.
type Transformer struct {
	index      *assets.Index
	sink       Sink
	policy     policy.Policy
	linkPrefix string
}

// New creates a Transformer. linkPrefix is the URL prefix of intra-site note
// links (e.g. "/blog/").
func New(index *assets.Index, sink Sink, pol policy.Policy, linkPrefix string) *Transformer {
	if !strings.HasSuffix(linkPrefix, "/") {
		linkPrefix += "/"
	}
	return &Transformer{index: index, sink: sink, policy: pol, linkPrefix: linkPrefix}
}

// Result is the outcome of transforming one body.
type Result struct {
	Body string
	// Tags are the content tags: non-technical, deduplicated and sorted.
	Tags []string
	// Missing lists asset basenames that were referenced but not indexed.
	Missing []string
}

// Transform rewrites body in five fixed steps:
//  1. drop the first line if it is a heading and the first non-blank line
//  2. rewrite image embeds found in the asset index
//  3. rewrite attachment and note links (external links are kept)
//  4. remove the inline tag tokens collected from the body
//  5. select content tags from metadata and inline tags
//
// notePath only serves error context.
func (t *Transformer) Transform(notePath, body string, inlineTags, metaTags []string) (*Result, error) {
	res := &Result{}
	st := &state{t: t, res: res}

	out := stripLeadingHeading(body)

	out = replaceTokens(embedRe, out, false, st.embed)
	if st.err != nil {
		return nil, fmt.Errorf("transform %s: %w", notePath, st.err)
	}

	out = replaceTokens(linkRe, out, true, st.link)
	if st.err != nil {
		return nil, fmt.Errorf("transform %s: %w", notePath, st.err)
	}

	out = removeInlineTags(out, inlineTags)

	res.Body = out
	res.Tags = t.policy.ContentTags(metaTags, inlineTags)
	return res, nil
}

// state carries per-call bookkeeping through the replace callbacks. The first
// sink error stops further rewrites.
type state struct {
	t   *Transformer
	res *Result
	err error
}

func (s *state) missing(name string) {
	for _, m := range s.res.Missing {
		if m == name {
			return
		}
	}
	s.res.Missing = append(s.res.Missing, name)
}

func (s *state) place(kind assets.Kind, name string) (string, bool) {
	src, ok := s.t.index.Lookup(name)
	if !ok {
		s.missing(name)
		return "", false
	}
	u, err := s.t.sink.Place(kind, src)
	if err != nil {
		s.err = err
		return "", false
	}
	return u, true
}

func (s *state) embed(tok token) (string, bool) {
	if s.err != nil {
		return "", false
	}
	target := tok.target
	alt := tok.text
	if tok.wiki {
		target = stripFragment(target)
		if sizeAliasRe.MatchString(alt) {
			alt = ""
		}
	} else {
		target = decode(destination(target))
		if strings.Contains(target, "://") {
			return "", false
		}
	}
	name := path.Base(target)
	if assets.Classify(name) != assets.KindImage {
		return "", false
	}
	u, ok := s.place(assets.KindImage, name)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("![%s](%s)", alt, u), true
}

func (s *state) link(tok token) (string, bool) {
	if s.err != nil {
		return "", false
	}
	target := tok.target
	if tok.wiki {
		if strings.Contains(target, "://") {
			return "", false
		}
	} else {
		target = destination(target)
		if isExternal(target) {
			return "", false
		}
		target = decode(target)
	}
	base := stripFragment(target)
	if strings.TrimSpace(base) == "" {
		// In-page anchor.
		return "", false
	}
	name := path.Base(base)

	if assets.Classify(name) != assets.KindOther {
		u, ok := s.place(assets.KindFile, name)
		if !ok {
			return "", false
		}
		text := tok.text
		if text == "" {
			text = name
		}
		return fmt.Sprintf(`<a href="%s">📎 %s</a>`, html.EscapeString(u), html.EscapeString(text)), true
	}

	text := tok.text
	if text == "" {
		text = target
	}
	return fmt.Sprintf("[%s](%s%s/)", text, s.t.linkPrefix, slug.Make(name)), true
}

func isExternal(dest string) bool {
	return strings.Contains(dest, "://") || schemeRe.MatchString(dest)
}

func decode(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}

// stripLeadingHeading removes the first non-blank line when it is a heading.
func stripLeadingHeading(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if headingRe.MatchString(strings.TrimRight(line, "\r")) {
			return strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
		}
		return body
	}
	return body
}

// removeInlineTags deletes each occurrence of the given tag tokens, keeping
// the whitespace that preceded them.
func removeInlineTags(body string, tokens []string) string {
	if len(tokens) == 0 {
		return body
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	idx := inlineTagRe.FindAllStringSubmatchIndex(body, -1)
	var b strings.Builder
	last := 0
	for _, m := range idx {
		tokStart, tokEnd := m[2], m[3]
		if _, ok := set[body[tokStart:tokEnd]]; !ok {
			continue
		}
		b.WriteString(body[last:tokStart])
		last = tokEnd
	}
	b.WriteString(body[last:])
	return b.String()
}
