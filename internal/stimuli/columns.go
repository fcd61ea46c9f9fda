package stimuli

import "strings"

// Accepted header names per role, in priority order. Matching is
// case-insensitive exact; the first candidate found anywhere in the header
// row wins.
var (
	idCandidates      = []string{"narration_id", "id"}
	textCandidates    = []string{"narration_text", "text", "narration"}
	enabledCandidates = []string{"enabled", "include", "use", "active"}
)

// Columns is the resolution of logical roles to concrete header columns,
// computed once per decode from the header row.
type Columns struct {
	ID      int // index of the id column
	Text    int // index of the text column
	Enabled int // index of the enabled column, -1 when absent
}

// HasEnabled reports whether an enabled-role column was resolved. When
// false, no inclusion filtering is applied.
func (c Columns) HasEnabled() bool {
	return c.Enabled >= 0
}

// ResolveColumns maps the id, text, and optional enabled roles onto the
// header row. Name matching runs through the candidate lists in priority
// order; when no candidate matches, id falls back to the first column and
// text to the second. The enabled role has no positional fallback.
//
// Headers are expected to be trimmed already. A header row with fewer than
// two columns leaves the text role unresolved (index -1), which in turn
// filters every row out downstream.
func ResolveColumns(headers []string) Columns {
	cols := Columns{
		ID:      matchHeader(headers, idCandidates),
		Text:    matchHeader(headers, textCandidates),
		Enabled: matchHeader(headers, enabledCandidates),
	}

	if cols.ID < 0 && len(headers) > 0 {
		cols.ID = 0
	}
	if cols.Text < 0 && len(headers) > 1 {
		cols.Text = 1
	}
	return cols
}

// matchHeader returns the index of the first candidate present in headers,
// or -1. Candidates are tried in order: an earlier candidate at a later
// column still beats a later candidate at an earlier column.
func matchHeader(headers []string, candidates []string) int {
	for _, want := range candidates {
		for i, h := range headers {
			if strings.EqualFold(h, want) {
				return i
			}
		}
	}
	return -1
}

// truthyValues are the accepted affirmative values for the enabled column.
var truthyValues = []string{"1", "true", "yes", "y"}

// isTruthy reports whether an enabled-column value marks a row as included.
// Anything outside the accepted set, including empty, excludes the row.
func isTruthy(value string) bool {
	for _, t := range truthyValues {
		if strings.EqualFold(value, t) {
			return true
		}
	}
	return false
}
