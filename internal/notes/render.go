package notes

import (
	"bufio"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// ugcPolicy keeps the formatting an editor produces (headings, lists, code
// blocks, links, tables) and drops scripts, styles and event handlers.
var ugcPolicy = bluemonday.UGCPolicy()

// RenderMarkdown converts Markdown into a sanitized HTML note body.
func RenderMarkdown(md string) string {
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return SanitizeHTML(string(markdown.Render(doc, renderer)))
}

// SanitizeHTML strips anything from an HTML note body that a user-generated
// content policy does not allow.
func SanitizeHTML(content string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(content))
}

// ImportTitle returns the text of the first ATX heading in md, or fallback
// when there is none.
func ImportTitle(md, fallback string) string {
	scanner := bufio.NewScanner(strings.NewReader(md))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if title != "" {
			return title
		}
	}
	return fallback
}
