package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/olekukonko/tablewriter/tw"
)

// Markdown writes a report with a summary table and one section per run.
type Markdown struct{}

// Export implements promptscore.Exporter.
func (Markdown) Export(w io.Writer, runs []promptscore.TestRun) error {
	var b strings.Builder
	if err := writeMarkdown(&b, runs); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdown(b *strings.Builder, runs []promptscore.TestRun) error {
	b.WriteString("# Prompt test report\n\n")
	if len(runs) == 0 {
		b.WriteString("No runs.\n")
		return nil
	}

	s := Summarize(runs)
	printer.Fprintf(b, "%d runs, mean score **%.1f**, best %.1f, %d tokens, total cost %s.\n\n",
		s.Runs, s.MeanScore, s.BestScore, s.TotalTokens, formatCost(s.TotalCost))

	ordered := sortedByTime(runs)
	table := createTable([]string{"Run", "Model", "Judge", "Score", "Tokens", "Cost"}, b, tw.StyleMarkdown)
	for _, r := range ordered {
		_ = table.Append([]string{
			shortID(r.ID),
			"`" + r.Model + "`",
			"`" + r.EvaluationModel + "`",
			formatScore(r.Metrics, r.Metrics.OverallScore),
			formatTokens(r.TokenUsage.TotalTokens + r.JudgeTokenUsage.TotalTokens),
			formatCost(r.Cost),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, r := range ordered {
		writeRunSection(b, r)
	}
	return nil
}

func writeRunSection(b *strings.Builder, r promptscore.TestRun) {
	m := r.Metrics
	fmt.Fprintf(b, "\n## Run %s\n\n", shortID(r.ID))
	fmt.Fprintf(b, "- Model: `%s`\n", r.Model)
	fmt.Fprintf(b, "- Judge: `%s`\n", r.EvaluationModel)
	fmt.Fprintf(b, "- Time: %s\n", r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	printer.Fprintf(b, "- Latency: %dms primary, %dms judge\n", r.ExecutionTimeMs, r.JudgeExecutionTimeMs)
	fmt.Fprintf(b, "- Cost: %s\n\n", formatCost(r.Cost))

	if m.ParseFailed {
		b.WriteString("> The judge's verdict could not be parsed; scores are unavailable.\n\n")
	} else {
		fmt.Fprintf(b, "| Overall | Coherence | Task completion | Instruction adherence | Efficiency |\n")
		fmt.Fprintf(b, "|---|---|---|---|---|\n")
		fmt.Fprintf(b, "| **%.1f** | %.1f | %.1f | %.1f | %.1f |\n\n",
			m.OverallScore, m.CoherenceScore, m.TaskCompletionScore, m.InstructionAdherenceScore, m.EfficiencyScore)
	}
	if m.Explanation != "" {
		fmt.Fprintf(b, "%s\n\n", m.Explanation)
	}

	writeFenced(b, "Instructions", r.Instructions)
	writeFenced(b, "Prompt", r.Prompt)
	writeFenced(b, "Response", r.Response)
}

// writeFenced writes content in a fence longer than any backtick run it
// contains, so embedded code blocks survive.
func writeFenced(b *strings.Builder, title, content string) {
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))
	fmt.Fprintf(b, "### %s\n\n%s\n%s\n%s\n\n", title, fence, strings.TrimRight(content, "\n"), fence)
}

func longestRun(s string, c rune) int {
	longest, current := 0, 0
	for _, r := range s {
		if r == c {
			current++
			longest = max(longest, current)
		} else {
			current = 0
		}
	}
	return longest
}
