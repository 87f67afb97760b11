// Package textutil holds the small text transforms shared by extractors,
// the cache and the output engines.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	emptyLines     = regexp.MustCompile(`(?m)^\s*[\n\r]`)
	leadingSpaces  = regexp.MustCompile(`(?m)^[^\S\n]+`)
	trailingSpaces = regexp.MustCompile(`(?m)[^\S\n]+$`)
	unsafeSegment  = regexp.MustCompile(`(?i)[^\-.0-9a-z_]`)
	betweenTags    = regexp.MustCompile(`>\s+<`)
)

// MinifyOptions tunes Minify.
type MinifyOptions struct {
	Unindent bool
}

// Minify drops empty lines, normalizes line endings to \n and strips
// trailing whitespace. With Unindent it also strips leading whitespace.
func Minify(text string, opts MinifyOptions) string {
	text = emptyLines.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n\r", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if opts.Unindent {
		text = leadingSpaces.ReplaceAllString(text, "")
	}
	return trailingSpaces.ReplaceAllString(text, "")
}

// MinifyHTML collapses whitespace between tags on top of Minify.
func MinifyHTML(doc string) string {
	doc = Minify(doc, MinifyOptions{Unindent: true})
	return betweenTags.ReplaceAllString(doc, "><")
}

// SanitizeSegment makes a string safe to use as a single path segment.
func SanitizeSegment(s string) string {
	return unsafeSegment.ReplaceAllString(s, "_")
}

var titleCaser = cases.Title(language.English)

// DisplayName turns an identifier like "htmlFromMarkdown" or "repo_glob"
// into a human label ("Html From Markdown", "Repo Glob").
func DisplayName(id string) string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range id {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case i > 0 && r >= 'A' && r <= 'Z':
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return titleCaser.String(strings.Join(words, " "))
}
