package notes

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// stripPolicy removes every tag. Block boundaries become spaces so that
// "<p>a</p><p>b</p>" reads as "a b" rather than "ab".
var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// StripMarkup returns the plain text of an HTML note body with entities
// decoded and whitespace collapsed.
func StripMarkup(content string) string {
	if content == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}

// Preview returns at most maxRunes runes of the note's plain text, with "..."
// appended when truncated.
func Preview(content string, maxRunes int) string {
	text := StripMarkup(content)
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimRight(string(runes[:maxRunes]), " ") + "..."
}

// DisplayTitle returns title, or UntitledLabel when it is blank.
func DisplayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return UntitledLabel
	}
	return title
}

// FormatRelative renders how long ago t was, relative to now:
// "just now", "5 minutes ago", "3 hours ago", "2 days ago", then a short date.
func FormatRelative(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff/time.Hour), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff/(24*time.Hour)), "day")
	default:
		return t.Format("Jan 2")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
