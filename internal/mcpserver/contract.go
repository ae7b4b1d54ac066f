package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/herald/internal/policy"
	"github.com/starford/herald/internal/publisher"
)

// PublishingRules describes, for LLM consumers, how a note must be written
// to be published and how it is rewritten on the way to the site.
func PublishingRules(pol policy.Policy, layout publisher.Layout) string {
	ignored := make([]string, len(pol.IgnoredPrefixes))
	for i, p := range pol.IgnoredPrefixes {
		ignored[i] = "`" + p + "`"
	}
	return fmt.Sprintf(`# Herald Publishing Rules

A note is published to the blog when, and only when, it carries the tag
`+"`#%[1]s`"+` exactly: in the YAML metadata block or inline in the body.
Tags that merely start with it (`+"`%[1]s-draft`, `%[1]s/later`"+`) do not count.

## Structure

`+"```"+`markdown
---
title: Human-readable title   # OPTIONAL – defaults to the file name
date: 2025-01-15              # OPTIONAL – defaults to the file modification date
tags:
  - %[1]s
  - golang
---

# Heading that repeats the title (dropped on publish)

Body with ![[diagram.png]] embeds, [[Other note]] links and #inline tags.
`+"```"+`

## Rules

1. **Trigger.** The tag `+"`%[1]s`"+` must match exactly; '#' and quotes are ignored.
2. **Tags.** Tags starting with %[2]s are workflow tags and never
   appear on the site. All other metadata and inline tags are merged, deduplicated and sorted.
   Inline tags are removed from the body.
3. **Title.** Metadata `+"`title`"+`, else the file name without `+"`.md`"+`. A first line that is a
   top-level `+"`# heading`"+` is removed so the title is not shown twice.
4. **Images.** `+"`![[name.png]]`"+` and `+"`![alt](path/name.png)`"+` are copied to `+"`%[3]s`"+` and
   linked as `+"`%[4]s<name>`"+`; spaces in file names become underscores.
5. **Attachments.** Links to files (pdf, docx, zip, …) are copied to `+"`%[5]s`"+` and become
   `+"`<a href=\"%[6]s<name>\">📎 text</a>`"+`.
6. **Note links.** `+"`[[Other note]]`"+` becomes `+"`[Other note](%[7]s<slug>/)`"+`, where the slug is the
   lower-cased name with spaces and underscores turned into dashes.
7. **Missing assets.** A reference to a file that does not exist anywhere in the notes tree is left
   untouched and reported.
8. **File names.** Names starting with `+"`~`"+` or containing `+"`sync-conflict`"+` are never published. The
   document keeps the note's file name, so two published notes must not share a name.
9. **Removal.** Removing the trigger tag (or the note) deletes the document on the next pass.
`,
		pol.Trigger,
		strings.Join(ignored, ", "),
		layout.ImagesDir,
		layout.ImagePrefix,
		layout.FilesDir,
		layout.FilesPrefix,
		layout.LinkPrefix,
	)
}
