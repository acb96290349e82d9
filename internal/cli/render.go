package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/kuitang/notebook/internal/notes"
)

const previewRunes = 48

// xterm-256 codes for the palette's color names.
var chipCodes = map[string]int{
	"blue":   33,
	"orange": 208,
	"purple": 135,
	"green":  34,
	"pink":   205,
	"cyan":   44,
	"amber":  214,
	"rose":   204,
}

func chipColor(token string) *color.Color {
	code, ok := chipCodes[notes.StyleFor(token).Name]
	if !ok {
		code = chipCodes["blue"]
	}
	return color.New(color.Attribute(38), color.Attribute(5), color.Attribute(code))
}

// chip renders a category name with its palette dot.
func chip(c notes.Category) string {
	return chipColor(c.Color).Sprint("● ") + c.Name
}

// categoryChip renders the category a note points at, or the uncategorized
// label when the reference no longer resolves.
func categoryChip(cats []notes.Category, id string) string {
	for _, c := range cats {
		if c.ID == id {
			return chip(c)
		}
	}
	return color.New(color.FgHiBlack).Sprint("○ " + notes.UncategorizedLabel)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen).Sprint("✓"), fmt.Sprintf(format, args...))
}
