package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/fwojciec/promptscore"
)

var csvHeader = []string{
	"id", "timestamp", "model", "provider", "evaluation_model",
	"overall", "coherence", "task_completion", "instruction_adherence", "efficiency", "parse_failed",
	"prompt_tokens", "completion_tokens", "judge_tokens",
	"execution_ms", "judge_execution_ms", "cost", "judge_cost",
	"instructions", "prompt", "response", "explanation",
}

// CSV writes one row per run.
type CSV struct{}

// Export implements promptscore.Exporter.
func (CSV) Export(w io.Writer, runs []promptscore.TestRun) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range runs {
		m := r.Metrics
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Model,
			r.ModelProvider,
			r.EvaluationModel,
			formatFloat(m.OverallScore),
			formatFloat(m.CoherenceScore),
			formatFloat(m.TaskCompletionScore),
			formatFloat(m.InstructionAdherenceScore),
			formatFloat(m.EfficiencyScore),
			strconv.FormatBool(m.ParseFailed),
			strconv.Itoa(r.TokenUsage.PromptTokens),
			strconv.Itoa(r.TokenUsage.CompletionTokens),
			strconv.Itoa(r.JudgeTokenUsage.TotalTokens),
			strconv.FormatInt(r.ExecutionTimeMs, 10),
			strconv.FormatInt(r.JudgeExecutionTimeMs, 10),
			strconv.FormatFloat(r.Cost, 'f', -1, 64),
			strconv.FormatFloat(r.JudgeCost, 'f', -1, 64),
			r.Instructions,
			r.Prompt,
			r.Response,
			m.Explanation,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
