package export

import (
	"bytes"
	"html"
	"io"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTML writes the markdown report rendered to a standalone HTML page. Raw
// HTML in model output is not passed through.
type HTML struct {
	Title string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%TITLE%</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.25rem 0.6rem; text-align: left; }
pre { background: #f6f8fa; padding: 0.75rem; overflow-x: auto; white-space: pre-wrap; }
blockquote { color: #8a6d3b; border-left: 4px solid #f0ad4e; margin: 0; padding-left: 1rem; }
</style>
</head>
<body>
`

const htmlFoot = "</body>\n</html>\n"

// Export implements promptscore.Exporter.
func (h HTML) Export(w io.Writer, runs []promptscore.TestRun) error {
	var src strings.Builder
	if err := writeMarkdown(&src, runs); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(src.String()), &body); err != nil {
		return err
	}

	title := h.Title
	if title == "" {
		title = "Prompt test report"
	}
	if _, err := io.WriteString(w, strings.Replace(htmlHead, "%TITLE%", html.EscapeString(title), 1)); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, htmlFoot)
	return err
}
