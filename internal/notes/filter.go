package notes

import (
	"strings"
)

// FilterNotes returns the notes matching params, preserving order.
// Category match is exact, or any when params.CategoryID is empty. Text match
// is a case-insensitive substring of the title or of the markup-stripped
// content; a blank query matches everything. notes is not modified.
func FilterNotes(notes []Note, params FilterParams) []Note {
	q := strings.ToLower(strings.TrimSpace(params.Query))
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if params.CategoryID != "" && n.CategoryID != params.CategoryID {
			continue
		}
		if q != "" && !matchesQuery(n, q) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// q must already be trimmed and lower-cased.
func matchesQuery(n Note, q string) bool {
	if strings.Contains(strings.ToLower(n.Title), q) {
		return true
	}
	return strings.Contains(strings.ToLower(StripMarkup(n.Content)), q)
}
