package email

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// inlineStyles maps tags to the inline CSS email clients need, since most of
// them ignore external stylesheets and <style> blocks.
var inlineStyles = []struct {
	tag   string
	style string
}{
	{"<p>", `<p style="margin: 0 0 16px 0; color: #374151; font-size: 16px; line-height: 1.6;">`},
	{"<h1>", `<h1 style="margin: 0 0 16px 0; font-size: 28px; font-weight: 600; color: #111827; line-height: 1.3;">`},
	{"<h2>", `<h2 style="margin: 0 0 16px 0; font-size: 24px; font-weight: 600; color: #111827; line-height: 1.3;">`},
	{"<h3>", `<h3 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #111827; line-height: 1.3;">`},
	{"<h4>", `<h4 style="margin: 0 0 16px 0; font-size: 18px; font-weight: 600; color: #111827; line-height: 1.3;">`},
	{"<a ", `<a style="color: #2563eb; text-decoration: underline;" `},
	{"<ul>", `<ul style="margin: 0 0 16px 0; padding-left: 24px; color: #374151;">`},
	{"<ol>", `<ol style="margin: 0 0 16px 0; padding-left: 24px; color: #374151;">`},
	{"<li>", `<li style="margin-bottom: 8px; line-height: 1.6;">`},
	{"<strong>", `<strong style="font-weight: 600; color: #111827;">`},
	{"<em>", `<em style="font-style: italic;">`},
	{"<code>", `<code style="background-color: #f3f4f6; padding: 2px 6px; border-radius: 3px; font-family: monospace; font-size: 14px; color: #dc2626;">`},
	{"<blockquote>", `<blockquote style="margin: 0 0 16px 0; padding: 12px 20px; border-left: 4px solid #e5e7eb; background-color: #f9fafb; color: #6b7280; font-style: italic;">`},
	{"<hr>", `<hr style="border: none; border-top: 1px solid #e5e7eb; margin: 24px 0;">`},
}

const emailShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body style="margin: 0; padding: 0; background-color: #f3f4f6; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding: 32px 16px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color: #ffffff; border-radius: 8px; padding: 32px;">
<tr><td>
%s
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`

// Renderer turns notification body markdown into sanitized, inline-styled
// HTML ready for delivery.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	return &Renderer{
		markdown: md,
		policy:   bluemonday.UGCPolicy(),
	}
}

// MarkdownToHTML converts markdown to sanitized HTML with inline styles.
// Sanitization runs before styling so the style attributes survive.
func (r *Renderer) MarkdownToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	sanitized := r.policy.Sanitize(buf.String())
	return applyInlineStyles(sanitized), nil
}

// RenderEmail produces the full HTML document for a message body.
func (r *Renderer) RenderEmail(title, bodyMarkdown string) (string, error) {
	bodyHTML, err := r.MarkdownToHTML(bodyMarkdown)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(emailShell, title, bodyHTML), nil
}

func applyInlineStyles(html string) string {
	for _, s := range inlineStyles {
		html = strings.ReplaceAll(html, s.tag, s.style)
	}
	return html
}
