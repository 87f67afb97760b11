package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agext/levenshtein"
)

var (
	// ErrMissingExtractor is returned when an entry reaches extraction
	// without naming an extractor.
	ErrMissingExtractor = errors.New("extractor is not defined")

	// ErrEntriesLoad wraps failures to read or parse an entries file.
	ErrEntriesLoad = errors.New("load entries")
)

// maxSuggestionDistance bounds how far a typo may be from a known name
// before we stop suggesting it.
const maxSuggestionDistance = 3

// UnknownNameError reports a lookup miss in one of the name registries
// (extractors, content module kinds, output engines).
type UnknownNameError struct {
	Registry   string
	Name       string
	Suggestion string
}

func (e *UnknownNameError) Error() string {
	msg := fmt.Sprintf("unknown %s %q", e.Registry, e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// NewUnknownNameError builds the error and picks the closest known name
// as a suggestion.
func NewUnknownNameError(registry, name string, known []string) *UnknownNameError {
	return &UnknownNameError{
		Registry:   registry,
		Name:       name,
		Suggestion: closest(name, known),
	}
}

func closest(name string, known []string) string {
	sorted := append([]string(nil), known...)
	sort.Strings(sorted)

	best, bestDist := "", maxSuggestionDistance+1
	for _, k := range sorted {
		if d := levenshtein.Distance(name, k, nil); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
