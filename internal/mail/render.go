package mail

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	iframeTagPattern = regexp.MustCompile(`(?is)<iframe\b.*?</iframe>`)
	eventAttrPattern = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(".*?"|'.*?'|[^\s>]+)`)
	jsURLPattern     = regexp.MustCompile(`(?i)(href|src)\s*=\s*(["']?)\s*javascript:[^"'\s>]*`)
	lineBreakPattern = regexp.MustCompile(`\r?\n`)
)

// FetchBodyHTML fetches a message and renders its body as a standalone HTML
// document suitable for a webview. HTML bodies are sanitized; plain-text
// bodies are escaped and wrapped.
func (s *Session) FetchBodyHTML(folderPath string, uid uint32) (string, error) {
	raw, err := s.FetchRawMessage(folderPath, uid)
	if err != nil {
		return "", err
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse failed: %w", err)
	}

	var body string
	switch {
	case env.HTML != "":
		body = sanitizeHTML(env.HTML)
	case env.Text != "":
		body = textToHTML(env.Text)
	default:
		body = "<p>(no content)</p>"
	}

	return wrapHTMLDocument(body), nil
}

// sanitizeHTML strips active content from untrusted message HTML: script
// and iframe elements, inline event handlers and javascript: URLs.
func sanitizeHTML(input string) string {
	out := scriptTagPattern.ReplaceAllString(input, "")
	out = iframeTagPattern.ReplaceAllString(out, "")
	out = eventAttrPattern.ReplaceAllString(out, "")
	out = jsURLPattern.ReplaceAllString(out, "$1=$2#")
	return out
}

// textToHTML escapes a plain-text body and preserves its line structure
func textToHTML(text string) string {
	escaped := html.EscapeString(text)
	return "<p>" + lineBreakPattern.ReplaceAllString(escaped, "<br>") + "</p>"
}

// wrapHTMLDocument wraps a body fragment in a minimal styled document
func wrapHTMLDocument(body string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, Roboto, sans-serif; margin: 16px; color: #202124; word-wrap: break-word; }\n")
	b.WriteString("img { max-width: 100%; height: auto; }\n")
	b.WriteString("table { max-width: 100%; }\n")
	b.WriteString("blockquote { border-left: 2px solid #dadce0; margin-left: 0; padding-left: 12px; color: #5f6368; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
