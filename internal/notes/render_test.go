package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testRenderMarkdown_NoScript(t *rapid.T) {
	text := rapid.StringMatching(`[A-Za-z ]{0,30}`).Draw(t, "text")
	payload := rapid.SampledFrom([]string{
		"<script>alert(1)</script>",
		`<img src=x onerror="alert(1)">`,
		"[x](javascript:alert(1))",
		`<a href="javascript:alert(1)">x</a>`,
	}).Draw(t, "payload")

	out := strings.ToLower(RenderMarkdown(text + "\n\n" + payload))
	for _, bad := range []string{"<script", "onerror", "javascript:"} {
		if strings.Contains(out, bad) {
			t.Fatalf("rendered output contains %q: %s", bad, out)
		}
	}
}

func TestRenderMarkdown_NoScript(t *testing.T) {
	rapid.Check(t, testRenderMarkdown_NoScript)
}

func TestRenderMarkdown_Formatting(t *testing.T) {
	out := RenderMarkdown("# Title\n\nSome **bold** text.\n\n- one\n- two\n")
	require.Contains(t, out, "<h1")
	require.Contains(t, out, "Title</h1>")
	require.Contains(t, out, "<strong>bold</strong>")
	require.Contains(t, out, "<li>one</li>")

	require.Equal(t, "Title Some bold text. one two", StripMarkup(out))
}

func TestImportTitle(t *testing.T) {
	require.Equal(t, "Groceries", ImportTitle("intro\n\n## Groceries \n# Later", "file"))
	require.Equal(t, "file", ImportTitle("no heading here", "file"))
	require.Equal(t, "file", ImportTitle("#\n#   \n", "file"))
}
