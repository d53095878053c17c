package export

import (
	"fmt"
	"io"

	"github.com/fwojciec/promptscore"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// modelColumnWidth bounds the model column of the text table.
const modelColumnWidth = 32

// Text writes a terminal table of runs followed by a summary line.
type Text struct{}

// Export implements promptscore.Exporter.
func (Text) Export(w io.Writer, runs []promptscore.TestRun) error {
	if len(runs) == 0 {
		_, err := io.WriteString(w, "No runs.\n")
		return err
	}

	table := createTable([]string{"Run", "Time", "Model", "Score", "Coh", "Task", "Instr", "Eff", "Tokens", "Latency", "Cost"}, w, tw.StyleLight)
	for _, r := range sortedByTime(runs) {
		m := r.Metrics
		_ = table.Append([]string{
			shortID(r.ID),
			r.Timestamp.Local().Format("15:04:05"),
			runewidth.Truncate(r.Model, modelColumnWidth, "…"),
			formatScore(m, m.OverallScore),
			formatScore(m, m.CoherenceScore),
			formatScore(m, m.TaskCompletionScore),
			formatScore(m, m.InstructionAdherenceScore),
			formatScore(m, m.EfficiencyScore),
			formatTokens(r.TokenUsage.TotalTokens + r.JudgeTokenUsage.TotalTokens),
			fmt.Sprintf("%dms", r.ExecutionTimeMs),
			formatCost(r.Cost),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	s := Summarize(runs)
	_, err := printer.Fprintf(w, "%d runs, mean score %.1f, best %.1f, %d tokens, total cost %s\n",
		s.Runs, s.MeanScore, s.BestScore, s.TotalTokens, formatCost(s.TotalCost))
	if err != nil {
		return err
	}
	if s.Degraded > 0 {
		_, err = fmt.Fprintf(w, "%d run(s) had an unparseable verdict and are excluded from score statistics\n", s.Degraded)
	}
	return err
}

// createTable creates a table writer with the formatting shared by the text
// and markdown exporters.
func createTable(headers []string, w io.Writer, style tw.BorderStyle) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	borders := tw.Border{Left: tw.On, Top: tw.On, Right: tw.On, Bottom: tw.On}
	if style == tw.StyleMarkdown {
		borders = tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off}
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(style),
			Borders: borders,
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
