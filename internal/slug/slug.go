// Package slug derives URL-safe identifiers for intra-site note links.
package slug

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// separatorRe matches runs of whitespace or underscores: [\s_]+
	separatorRe = regexp.MustCompile(`[\s_]+`)
	// invalidRe matches anything that is not a letter, digit, underscore or hyphen.
	invalidRe = regexp.MustCompile(`[^\p{L}\p{N}_-]`)
)

// Make returns the slug for a link target.
//
// The target is percent-decoded, NFC-normalised and lowercased; whitespace and
// underscore runs collapse into a single hyphen, a trailing ".md" is dropped and
// every remaining character outside [letters digits _ -] is removed. An empty
// target yields an empty slug.
func Make(target string) string {
	s := target
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = separatorRe.ReplaceAllString(s, "-")
	s = strings.TrimSuffix(s, ".md")
	return invalidRe.ReplaceAllString(s, "")
}
