package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToHTML_AppliesInlineStyles(t *testing.T) {
	renderer := NewRenderer()

	html, err := renderer.MarkdownToHTML("**Bold** and *italic* text")
	require.NoError(t, err)

	assert.Contains(t, html, `<p style=`)
	assert.Contains(t, html, `<strong style=`)
	assert.Contains(t, html, `<em style=`)
}

func TestMarkdownToHTML_StripsScript(t *testing.T) {
	renderer := NewRenderer()

	html, err := renderer.MarkdownToHTML("Hello <script>alert(1)</script> world")
	require.NoError(t, err)

	// The sanitizer drops the element but keeps its text content; what
	// matters is that no executable tag survives.
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "</script>")
	assert.Contains(t, html, "Hello")
}

func TestMarkdownToHTML_Headings(t *testing.T) {
	renderer := NewRenderer()

	html, err := renderer.MarkdownToHTML("# Title\n\nSome body")
	require.NoError(t, err)

	assert.Contains(t, html, `<h1 style=`)
	assert.Contains(t, html, "Title")
}

func TestRenderEmail_WrapsInDocument(t *testing.T) {
	renderer := NewRenderer()

	html, err := renderer.RenderEmail("Weekly update", "You have **3** new items")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Weekly update</title>")
	assert.Contains(t, html, "<strong style=")
}
