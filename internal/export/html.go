// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/yukti/internal/config"
	"github.com/jeranaias/yukti/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter renders a standalone page with embedded CSS.
type HTMLExporter struct{}

var (
	codeBlockRe  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
)

func (HTMLExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := check(t); err != nil {
		return nil, err
	}

	name := t.Assistant
	if name == "" {
		name = config.ProjectName
	}
	title := html.EscapeString("Session " + t.SessionID)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", title)
	fmt.Fprintf(&sb, "<meta name=\"generator\" content=\"%s %s\">\n", config.ProjectName, config.Version)
	sb.WriteString(css)
	sb.WriteString("</head>\n<body>\n<div class=\"container\">\n")

	fmt.Fprintf(&sb, "<header><h1>%s</h1><p class=\"meta\">%d exchanges, started %s</p></header>\n",
		title, len(t.Exchanges), t.Exchanges[0].Timestamp.Format("January 2, 2006 at 3:04 PM"))

	sb.WriteString("<main>\n")
	for _, ex := range t.Exchanges {
		stamp := ex.Timestamp.Format("15:04")
		writeMessage(&sb, "user", "You", stamp, ex.User)
		writeMessage(&sb, "assistant", name, stamp, ex.Assistant)
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer>Exported from %s on %s</footer>\n",
		html.EscapeString(config.ProjectName), time.Now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

func (HTMLExporter) FileExtension() string { return ".html" }
func (HTMLExporter) MimeType() string      { return "text/html; charset=utf-8" }

func writeMessage(sb *strings.Builder, class, label, stamp, content string) {
	fmt.Fprintf(sb, "<div class=\"message %s\">\n", class)
	fmt.Fprintf(sb, "<div class=\"head\"><span class=\"role\">%s</span><span class=\"time\">%s</span></div>\n",
		html.EscapeString(label), stamp)
	sb.WriteString("<div class=\"body\">")
	sb.WriteString(formatContent(content))
	sb.WriteString("</div>\n</div>\n")
}

// formatContent escapes content and turns fenced and inline code into
// <pre>/<code>. Remaining text is split into paragraphs on blank lines.
func formatContent(content string) string {
	var (
		out  strings.Builder
		last int
	)
	for _, m := range codeBlockRe.FindAllStringSubmatchIndex(content, -1) {
		out.WriteString(paragraphs(content[last:m[0]]))
		lang := content[m[2]:m[3]]
		code := strings.TrimRight(content[m[4]:m[5]], "\n")
		fmt.Fprintf(&out, "<pre><code class=\"language-%s\">%s</code></pre>",
			html.EscapeString(lang), html.EscapeString(code))
		last = m[1]
	}
	out.WriteString(paragraphs(content[last:]))
	return out.String()
}

func paragraphs(text string) string {
	var out strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = inlineCodeRe.ReplaceAllString(escaped, "<code>$1</code>")
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		out.WriteString("<p>" + escaped + "</p>")
	}
	return out.String()
}

const css = `<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { background: #1a1b26; color: #c0caf5; line-height: 1.6;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
.container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
header { border-bottom: 1px solid #414868; padding-bottom: 1rem; margin-bottom: 1.5rem; }
.meta, .time, footer { color: #565f89; font-size: 0.85rem; }
.message { background: #24283b; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; }
.message.user { border-left: 3px solid #7aa2f7; }
.message.assistant { border-left: 3px solid #bb9af7; }
.head { display: flex; justify-content: space-between; margin-bottom: 0.5rem; }
.role { font-weight: 600; }
.body p { margin-bottom: 0.75rem; }
pre { background: #16161e; padding: 0.75rem; border-radius: 6px; overflow-x: auto; margin-bottom: 0.75rem; }
code { font-family: "SF Mono", Monaco, "Fira Code", monospace; font-size: 0.9em; }
footer { text-align: center; margin-top: 2rem; }
</style>
`
