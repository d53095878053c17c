package bubbletea

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/promptscore"
	"github.com/mattn/go-runewidth"
)

// renderConfig holds all rendering parameters for renderRun.
type renderConfig struct {
	run      promptscore.TestRun
	previous *promptscore.TestRun // set in compare mode
	styles   promptscore.Styles
	renderer *lipgloss.Renderer
	width    int

	splitter   promptscore.BlockSplitter
	detector   promptscore.LanguageDetector
	tokenizer  promptscore.Tokenizer
	wordDiffer promptscore.WordDiffer
}

const (
	barWidth   = 20
	labelWidth = 22
	tabWidth   = 4
)

// renderRun renders one run: metadata, score breakdown, explanation and the
// response, or in compare mode a word diff against the previous response.
func renderRun(cfg renderConfig) string {
	r := cfg.run
	s := cfg.styles
	title := styleFromColorPair(s.Title, cfg.renderer).Bold(true)
	label := styleFromColorPair(s.Label, cfg.renderer)
	muted := styleFromColorPair(s.Muted, cfg.renderer)
	errStyle := styleFromColorPair(s.Error, cfg.renderer)

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", title.Render("Run "+shortID(r.ID)), muted.Render(r.Timestamp.Local().Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "%s %s\n", label.Render(pad("Model", 8)), r.Model)
	fmt.Fprintf(&b, "%s %s\n", label.Render(pad("Judge", 8)), r.EvaluationModel)
	fmt.Fprintf(&b, "%s %d %s\n", label.Render(pad("Tokens", 8)), r.TokenUsage.TotalTokens,
		muted.Render(fmt.Sprintf("(+%d judge)", r.JudgeTokenUsage.TotalTokens)))
	fmt.Fprintf(&b, "%s %dms %s\n", label.Render(pad("Latency", 8)), r.ExecutionTimeMs,
		muted.Render(fmt.Sprintf("(+%dms judge)", r.JudgeExecutionTimeMs)))
	fmt.Fprintf(&b, "%s $%.4f %s\n\n", label.Render(pad("Cost", 8)), r.Cost,
		muted.Render(fmt.Sprintf("($%.4f judge)", r.JudgeCost)))

	m := r.Metrics
	if m.ParseFailed {
		b.WriteString(errStyle.Render("The judge's verdict could not be parsed; scores are unavailable."))
		b.WriteString("\n")
		if m.RawVerdict != "" {
			b.WriteString(muted.Render(wrap(m.RawVerdict, cfg.width)))
			b.WriteString("\n")
		}
	} else {
		overall := styleFromColorPair(s.ScoreStyle(m.OverallScore), cfg.renderer).Bold(true)
		fmt.Fprintf(&b, "%s %s\n", title.Render(pad("SCORE", labelWidth)), overall.Render(fmt.Sprintf("%.1f", m.OverallScore)))
		for _, row := range []struct {
			name  string
			score float64
		}{
			{"Coherence", m.CoherenceScore},
			{"Task completion", m.TaskCompletionScore},
			{"Instruction adherence", m.InstructionAdherenceScore},
			{"Efficiency", m.EfficiencyScore},
		} {
			b.WriteString(renderScoreRow(row.name, row.score, s, cfg.renderer))
			b.WriteString("\n")
		}
	}
	if m.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(wrap(m.Explanation, cfg.width))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if cfg.previous != nil && cfg.wordDiffer != nil {
		b.WriteString(renderComparison(cfg))
		return b.String()
	}

	b.WriteString(title.Render("RESPONSE"))
	b.WriteString("\n")
	b.WriteString(renderResponse(cfg))
	return b.String()
}

// renderScoreRow renders "Label  ████░░░░  85".
func renderScoreRow(name string, score float64, s promptscore.Styles, renderer *lipgloss.Renderer) string {
	filled := int(math.Round(score / 100 * barWidth))
	filled = min(max(filled, 0), barWidth)
	bar := styleFromColorPair(s.ScoreStyle(score), renderer).Render(strings.Repeat("█", filled))
	rest := styleFromColorPair(s.Muted, renderer).Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %s%s %3.0f", styleFromColorPair(s.Label, renderer).Render(pad(name, labelWidth)), bar, rest, score)
}

// renderResponse renders prose wrapped to the width and code blocks with
// syntax highlighting.
func renderResponse(cfg renderConfig) string {
	response := cfg.run.Response
	if cfg.splitter == nil {
		return wrap(response, cfg.width) + "\n"
	}

	muted := styleFromColorPair(cfg.styles.Muted, cfg.renderer)

	var b strings.Builder
	for _, block := range cfg.splitter.Split(response) {
		if !block.Code {
			b.WriteString(wrap(strings.Trim(block.Text, "\n"), cfg.width))
			b.WriteString("\n\n")
			continue
		}

		var language string
		if cfg.detector != nil {
			language = cfg.detector.DetectFromFence(block.Info, block.Text)
		}
		if language != "" {
			b.WriteString(muted.Render(language))
			b.WriteString("\n")
		}

		var lines [][]promptscore.Token
		if language != "" && cfg.tokenizer != nil {
			lines = cfg.tokenizer.TokenizeLines(language, block.Text)
		}
		if lines == nil {
			for _, line := range strings.Split(block.Text, "\n") {
				b.WriteString(renderLineWithTokens([]promptscore.Token{{Text: line}}, cfg.styles.CodeBlock, cfg.renderer, cfg.width))
				b.WriteString("\n")
			}
		} else {
			for _, line := range lines {
				b.WriteString(renderLineWithTokens(line, cfg.styles.CodeBlock, cfg.renderer, cfg.width))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderComparison renders the previous and current responses with the
// words that differ highlighted.
func renderComparison(cfg renderConfig) string {
	title := styleFromColorPair(cfg.styles.Title, cfg.renderer).Bold(true)
	oldSegs, newSegs := cfg.wordDiffer.Diff(cfg.previous.Response, cfg.run.Response)

	var b strings.Builder
	b.WriteString(title.Render("PREVIOUS " + shortID(cfg.previous.ID)))
	b.WriteString("\n")
	b.WriteString(wrap(renderSegments(oldSegs, cfg.styles.DeletedHighlight, cfg.renderer), cfg.width))
	b.WriteString("\n\n")
	b.WriteString(title.Render("CURRENT " + shortID(cfg.run.ID)))
	b.WriteString("\n")
	b.WriteString(wrap(renderSegments(newSegs, cfg.styles.AddedHighlight, cfg.renderer), cfg.width))
	b.WriteString("\n")
	return b.String()
}

// renderSegments styles changed segments line by line so highlights never
// span a line break.
func renderSegments(segs []promptscore.Segment, highlight promptscore.ColorPair, renderer *lipgloss.Renderer) string {
	style := styleFromColorPair(highlight, renderer)
	var b strings.Builder
	for _, seg := range segs {
		if !seg.Changed {
			b.WriteString(seg.Text)
			continue
		}
		for i, part := range strings.Split(seg.Text, "\n") {
			if i > 0 {
				b.WriteString("\n")
			}
			if part != "" {
				b.WriteString(style.Render(part))
			}
		}
	}
	return b.String()
}

// renderLineWithTokens renders a code line with syntax colors on the code
// block background, padded to width.
func renderLineWithTokens(tokens []promptscore.Token, colors promptscore.ColorPair, renderer *lipgloss.Renderer, width int) string {
	base := styleFromColorPair(colors, renderer)

	var sb strings.Builder
	col := 0
	for _, tok := range tokens {
		text := expandTabs(tok.Text, col)
		style := base
		if tok.Style.Foreground != "" {
			style = style.Foreground(lipgloss.Color(tok.Style.Foreground))
		}
		if tok.Style.Bold {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(text))
		col += runewidth.StringWidth(text)
	}
	if col < width {
		sb.WriteString(base.Render(strings.Repeat(" ", width-col)))
	}
	return sb.String()
}

// expandTabs converts tabs to spaces at tabWidth stops, starting at column
// startCol.
func expandTabs(s string, startCol int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var sb strings.Builder
	col := startCol
	for _, r := range s {
		if r == '\t' {
			next := (col/tabWidth + 1) * tabWidth
			sb.WriteString(strings.Repeat(" ", next-col))
			col = next
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String()
}

// styleFromColorPair creates a lipgloss style from a ColorPair.
// If renderer is nil, the default lipgloss renderer is used.
func styleFromColorPair(cp promptscore.ColorPair, renderer *lipgloss.Renderer) lipgloss.Style {
	var style lipgloss.Style
	if renderer != nil {
		style = renderer.NewStyle()
	} else {
		style = lipgloss.NewStyle()
	}
	if cp.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cp.Foreground))
	}
	if cp.Background != "" {
		style = style.Background(lipgloss.Color(cp.Background))
	}
	return style
}

// wrap word-wraps text to width, leaving it alone when width is unknown.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, "")
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
