package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownRenderer_CollectsHeadingsForTOC(t *testing.T) {
	src := []byte("# First\n\ntext\n\n## Second Level\n\nmore text\n")

	r := NewMarkdownRenderer()
	got, err := r.Render(src)
	require.NoError(t, err)

	require.Len(t, got.Headings, 2)
	require.Equal(t, 1, got.Headings[0].Level)
	require.Equal(t, "First", got.Headings[0].Text)
	require.Equal(t, "first", got.Headings[0].ID)
	require.Equal(t, 2, got.Headings[1].Level)
	require.Equal(t, "second-level", got.Headings[1].ID)
}

func TestMarkdownRenderer_GFMTable(t *testing.T) {
	src := []byte("| a | b |\n|---|---|\n| 1 | 2 |\n")

	r := NewMarkdownRenderer()
	got, err := r.Render(src)
	require.NoError(t, err)
	require.Contains(t, string(got.HTML), "<table>")
}

func TestMarkdownRenderer_RawHTMLPassedThrough(t *testing.T) {
	src := []byte("before\n\n<div class=\"diagram\">x</div>\n\nafter\n")

	r := NewMarkdownRenderer()
	got, err := r.Render(src)
	require.NoError(t, err)
	require.Contains(t, string(got.HTML), `<div class="diagram">`)
}

func TestMarkdownRenderer_FencedCodeBlock(t *testing.T) {
	src := []byte("```go\nfunc main() {}\n```\n")

	r := NewMarkdownRenderer()
	got, err := r.Render(src)
	require.NoError(t, err)
	require.Contains(t, string(got.HTML), "<pre>")
	require.Contains(t, string(got.HTML), "language-go")
}

func TestMarkdownRenderer_SameInputSameOutput(t *testing.T) {
	src := []byte("# T\n\nbody with [link](https://example.com)\n")

	r := NewMarkdownRenderer()
	a, err := r.Render(src)
	require.NoError(t, err)
	b, err := r.Render(src)
	require.NoError(t, err)
	require.Equal(t, a.HTML, b.HTML)
	require.Equal(t, a.Headings, b.Headings)
}
