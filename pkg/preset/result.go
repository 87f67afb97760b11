package preset

import "github.com/grovetools/kb/pkg/models"

// Outcome tags a Result.
type Outcome int

const (
	// Terminal means the entry is ready for extraction as it is.
	Terminal Outcome = iota
	// Skip means the entry produces nothing.
	Skip
	// Children fans the entry out into sibling entries.
	Children
	// Replace swaps the entry for a new shape of the same logical entry.
	Replace
	// ExtractorHint names the extractor and proceeds to extraction.
	ExtractorHint
)

func (o Outcome) String() string {
	switch o {
	case Terminal:
		return "terminal"
	case Skip:
		return "skip"
	case Children:
		return "children"
	case Replace:
		return "replace"
	case ExtractorHint:
		return "extractor"
	default:
		return "unknown"
	}
}

// Result is what resolving an entry yields. Only the field matching
// Outcome is meaningful.
type Result struct {
	Outcome   Outcome
	Entries   []models.Entry
	Entry     models.Entry
	Extractor string
}

// TerminalResult passes the entry on to extraction unchanged.
func TerminalResult() Result { return Result{Outcome: Terminal} }

// SkipResult drops the entry.
func SkipResult() Result { return Result{Outcome: Skip} }

// ChildrenResult fans the entry out into entries, processed in order.
func ChildrenResult(entries []models.Entry) Result {
	return Result{Outcome: Children, Entries: entries}
}

// ReplaceResult resolves entry in place of the original.
func ReplaceResult(entry models.Entry) Result {
	return Result{Outcome: Replace, Entry: entry}
}

// HintResult binds the entry to the named extractor.
func HintResult(extractor string) Result {
	return Result{Outcome: ExtractorHint, Extractor: extractor}
}
