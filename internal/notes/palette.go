package notes

import (
	"math/rand/v2"
)

// Style is the set of style tokens that go with one palette color.
type Style struct {
	Background       string `json:"bg"`
	Text             string `json:"text"`
	ActiveBackground string `json:"activeBg"`
	Dot              string `json:"dot"`
	// Name is a plain color name for front ends without CSS (e.g. terminals).
	Name string `json:"name"`
}

// Palette is the fixed set of category colors. Category.Color holds the
// Background token of one of these.
var Palette = []Style{
	{Background: "bg-blue-100", Text: "text-blue-700", ActiveBackground: "bg-blue-50", Dot: "bg-blue-400", Name: "blue"},
	{Background: "bg-orange-100", Text: "text-orange-700", ActiveBackground: "bg-orange-50", Dot: "bg-orange-400", Name: "orange"},
	{Background: "bg-purple-100", Text: "text-purple-700", ActiveBackground: "bg-purple-50", Dot: "bg-purple-400", Name: "purple"},
	{Background: "bg-green-100", Text: "text-green-700", ActiveBackground: "bg-green-50", Dot: "bg-green-400", Name: "green"},
	{Background: "bg-pink-100", Text: "text-pink-700", ActiveBackground: "bg-pink-50", Dot: "bg-pink-400", Name: "pink"},
	{Background: "bg-cyan-100", Text: "text-cyan-700", ActiveBackground: "bg-cyan-50", Dot: "bg-cyan-400", Name: "cyan"},
	{Background: "bg-amber-100", Text: "text-amber-700", ActiveBackground: "bg-amber-50", Dot: "bg-amber-400", Name: "amber"},
	{Background: "bg-rose-100", Text: "text-rose-700", ActiveBackground: "bg-rose-50", Dot: "bg-rose-400", Name: "rose"},
}

// StyleFor returns the palette entry for a color token, falling back to the
// first entry for unknown tokens.
func StyleFor(color string) Style {
	if s, ok := lookupStyle(color); ok {
		return s
	}
	return Palette[0]
}

// IsPaletteColor reports whether color is a palette background token.
func IsPaletteColor(color string) bool {
	_, ok := lookupStyle(color)
	return ok
}

// ParseColor accepts either a background token ("bg-rose-100") or a plain
// color name ("rose") and returns the background token.
func ParseColor(s string) (string, bool) {
	for _, p := range Palette {
		if s == p.Background || s == p.Name {
			return p.Background, true
		}
	}
	return "", false
}

// RandomColor picks a palette color uniformly at random.
func RandomColor() string {
	return Palette[rand.IntN(len(Palette))].Background
}

func lookupStyle(color string) (Style, bool) {
	for _, p := range Palette {
		if p.Background == color {
			return p, true
		}
	}
	return Style{}, false
}

// DefaultCategories returns the categories seeded when no other copy exists.
// The result is a fresh slice on every call.
func DefaultCategories() []Category {
	return []Category{
		{ID: "cat-1", Name: "Personal", Color: "bg-blue-100"},
		{ID: "cat-2", Name: "Work", Color: "bg-orange-100"},
		{ID: "cat-3", Name: "Ideas", Color: "bg-purple-100"},
		{ID: "cat-4", Name: "Journal", Color: "bg-green-100"},
	}
}
