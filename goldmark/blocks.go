// Package goldmark splits model responses into prose and fenced code using
// the goldmark CommonMark parser.
package goldmark

import (
	"bytes"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Compile-time interface verification.
var _ promptscore.BlockSplitter = (*Splitter)(nil)

// Splitter finds top-level fenced code blocks. Fences nested in lists or
// quotes stay part of the surrounding prose.
type Splitter struct {
	md goldmark.Markdown
}

// NewSplitter creates a Splitter.
func NewSplitter() *Splitter {
	return &Splitter{md: goldmark.New()}
}

// Split implements promptscore.BlockSplitter.
func (s *Splitter) Split(markdown string) []promptscore.Block {
	src := []byte(markdown)
	doc := s.md.Parser().Parse(text.NewReader(src))

	var blocks []promptscore.Block
	pos := 0
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok || fence.Lines().Len() == 0 {
			continue
		}
		start, end := fenceBounds(src, fence)
		if start < pos {
			continue
		}
		if prose := markdown[pos:start]; strings.TrimSpace(prose) != "" {
			blocks = append(blocks, promptscore.Block{Text: prose})
		}

		var body bytes.Buffer
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(src))
		}
		var info string
		if fence.Info != nil {
			info = strings.TrimSpace(string(fence.Info.Segment.Value(src)))
		}
		blocks = append(blocks, promptscore.Block{
			Text: strings.TrimSuffix(body.String(), "\n"),
			Code: true,
			Info: info,
		})
		pos = end
	}
	if prose := markdown[pos:]; strings.TrimSpace(prose) != "" {
		blocks = append(blocks, promptscore.Block{Text: prose})
	}
	return blocks
}

// fenceBounds returns the byte range of a fenced block including its opening
// and, when present, closing fence lines.
func fenceBounds(src []byte, fence *ast.FencedCodeBlock) (start, end int) {
	lines := fence.Lines()
	first, last := lines.At(0), lines.At(lines.Len()-1)

	// The opening fence is the line before the first content line.
	start = bytes.LastIndexByte(src[:max(first.Start-1, 0)], '\n') + 1

	end = last.Stop
	rest := src[end:]
	closing := rest
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		closing = rest[:i+1]
	}
	trimmed := bytes.TrimLeft(closing, " ")
	if bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~")) {
		end += len(closing)
	}
	return start, end
}
