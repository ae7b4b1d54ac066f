// Package policy decides which notes are published and which tags are surfaced.
package policy

import (
	"sort"
	"strings"
)

// Defaults used when the configuration does not override them.
const (
	DefaultTrigger = "публикация"
)

// DefaultIgnoredPrefixes lists the workflow tag namespaces that are never emitted.
var DefaultIgnoredPrefixes = []string{"публикация", "тип/", "статус/"}

// Policy holds the publish trigger and the ignored-prefix vocabulary.
type Policy struct {
	Trigger         string
	IgnoredPrefixes []string
}

// Default returns the stock policy.
func Default() Policy {
	return Policy{
		Trigger:         DefaultTrigger,
		IgnoredPrefixes: append([]string(nil), DefaultIgnoredPrefixes...),
	}
}

// Clean strips surrounding whitespace, quotes and the leading '#' from a tag.
func Clean(tag string) string {
	t := strings.TrimSpace(tag)
	t = strings.Trim(t, `"'`)
	t = strings.TrimSpace(t)
	return strings.TrimLeft(t, "#")
}

// IsEligible reports whether one of the tags is exactly the trigger keyword.
// A tag that merely extends the trigger ("публикация/draft") does not count.
func (p Policy) IsEligible(tags []string) bool {
	trigger := Clean(p.Trigger)
	if trigger == "" {
		return false
	}
	for _, t := range tags {
		if Clean(t) == trigger {
			return true
		}
	}
	return false
}

// IsTechnical reports whether tag equals or starts with an ignored prefix.
func (p Policy) IsTechnical(tag string) bool {
	clean := Clean(tag)
	for _, prefix := range p.IgnoredPrefixes {
		cp := strings.TrimLeft(prefix, "#")
		if cp == "" {
			continue
		}
		if strings.HasPrefix(clean, cp) {
			return true
		}
	}
	return false
}

// ContentTags unions the non-technical tags of every source, deduplicated by
// exact string equality after cleaning, and returns them sorted.
func (p Policy) ContentTags(sources ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, src := range sources {
		for _, raw := range src {
			t := Clean(raw)
			if t == "" || p.IsTechnical(t) {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// RejectedName reports whether a note file name looks like an editor
// temporary file or a sync conflict copy.
func RejectedName(filename string) bool {
	return strings.Contains(filename, "~") || strings.Contains(filename, "sync-conflict")
}
