package transform

import (
	"regexp"
	"strings"
)

// Recognizers, in precedence order. Embeds are rewritten before links, and a
// link token immediately preceded by '!' is an embed and never a link. Within
// each family the wiki form is tried before the standard form at any given
// offset (leftmost-first alternation).
var (
	// headingRe: '#' [ \t]+ <text>, top level only
	headingRe = regexp.MustCompile(`^#[ \t]+\S.*$`)

	// embedRe:
	//	'![[' <target> ( '|' <alias> )? ']]'   (groups 1)
	//	'![' <alt> '](' <destination> ')'      (groups 2, 3)
	embedRe = regexp.MustCompile(`!\[\[([^\[\]]+?)\]\]|!\[([^\[\]]*)\]\(([^()]*)\)`)

	// linkRe:
	//	'[[' <target> ( '|' <text> )? ']]'     (groups 1)
	//	'[' <text> '](' <destination> ')'      (groups 2, 3)
	linkRe = regexp.MustCompile(`\[\[([^\[\]]+?)\]\]|\[([^\[\]]*)\]\(([^()]*)\)`)

	// inlineTagRe: (start | whitespace) '#' [letters digits _ / -]+
	inlineTagRe = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{N}_/-]+)`)

	// schemeRe: a URI scheme prefix such as "https:" or "mailto:".
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

	// sizeAliasRe: Obsidian image size aliases ("300" or "300x200").
	sizeAliasRe = regexp.MustCompile(`^\d+(x\d+)?$`)
)

// token is one recognised wiki or standard reference.
type token struct {
	wiki   bool
	target string // wiki target or standard destination, as written
	text   string // wiki alias or standard link text / alt
}

// replaceTokens rewrites every match of re. Matches preceded by '!' are left
// alone when skipEmbedded is set. fn returns the replacement and whether the
// token changed.
func replaceTokens(re *regexp.Regexp, s string, skipEmbedded bool, fn func(tok token) (string, bool)) string {
	idx := re.FindAllStringSubmatchIndex(s, -1)
	if len(idx) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range idx {
		start, end := m[0], m[1]
		if skipEmbedded && start > 0 && s[start-1] == '!' {
			continue
		}
		var tok token
		if m[2] >= 0 {
			tok.wiki = true
			tok.target, tok.text = splitWiki(s[m[2]:m[3]])
		} else {
			tok.text = s[m[4]:m[5]]
			tok.target = s[m[6]:m[7]]
		}
		repl, ok := fn(tok)
		if !ok {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(repl)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// splitWiki splits "target|alias". A backslash before the pipe (used inside
// tables) belongs to the separator.
func splitWiki(inner string) (target, alias string) {
	target = inner
	if i := strings.Index(inner, "|"); i >= 0 {
		target, alias = inner[:i], inner[i+1:]
		target = strings.TrimSuffix(target, `\`)
	}
	return strings.TrimSpace(target), strings.TrimSpace(alias)
}

// destination cleans a standard link destination: angle brackets and an
// optional quoted title are removed.
func destination(raw string) string {
	d := strings.TrimSpace(raw)
	if strings.HasPrefix(d, "<") {
		if i := strings.Index(d, ">"); i > 0 {
			return d[1:i]
		}
	}
	if i := strings.Index(d, ` "`); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSpace(d)
}

// stripFragment removes a trailing "#section" from a target.
func stripFragment(target string) string {
	if i := strings.Index(target, "#"); i >= 0 {
		return target[:i]
	}
	return target
}
