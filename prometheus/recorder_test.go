package prometheus_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/promptscore"
	promrec "github.com/fwojciec/promptscore/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("records calls", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewPedanticRegistry()
		r := promrec.NewRecorder(reg)
		ctx := context.Background()

		r.RecordCall(ctx, promptscore.RolePrimary, "openai/gpt-4o-mini", promptscore.NewTokenUsage(120, 30), 1500*time.Millisecond)
		r.RecordCall(ctx, promptscore.RoleJudge, "openai/gpt-4o-mini", promptscore.NewTokenUsage(400, 80), 700*time.Millisecond)

		expected := `
# HELP promptscore_tokens_total Tokens consumed by model calls
# TYPE promptscore_tokens_total counter
promptscore_tokens_total{model="openai/gpt-4o-mini",role="judge",type="completion"} 80
promptscore_tokens_total{model="openai/gpt-4o-mini",role="judge",type="prompt"} 400
promptscore_tokens_total{model="openai/gpt-4o-mini",role="primary",type="completion"} 30
promptscore_tokens_total{model="openai/gpt-4o-mini",role="primary",type="prompt"} 120
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "promptscore_tokens_total"))
		assert.Equal(t, 2, testutil.CollectAndCount(reg, "promptscore_model_calls_total"))
	})

	t.Run("records evaluations", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewPedanticRegistry()
		r := promrec.NewRecorder(reg)
		ctx := context.Background()

		r.RecordEvaluation(ctx, &promptscore.TestRun{
			Model:   "m",
			Metrics: promptscore.SuccessMetrics{OverallScore: 86.3},
			Cost:    0.01,
		})
		r.RecordEvaluation(ctx, &promptscore.TestRun{
			Model:   "m",
			Metrics: promptscore.SuccessMetrics{ParseFailed: true},
			Cost:    0.02,
		})

		expected := `
# HELP promptscore_evaluations_total Completed evaluations
# TYPE promptscore_evaluations_total counter
promptscore_evaluations_total{degraded="false",model="m"} 1
promptscore_evaluations_total{degraded="true",model="m"} 1
# HELP promptscore_evaluation_score Most recent overall score (0-100)
# TYPE promptscore_evaluation_score gauge
promptscore_evaluation_score{model="m"} 86.3
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
			"promptscore_evaluations_total", "promptscore_evaluation_score"))
	})

	t.Run("records failures by kind", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewPedanticRegistry()
		r := promrec.NewRecorder(reg)
		ctx := context.Background()

		r.RecordFailure(ctx, "m", promptscore.KindNetwork)
		r.RecordFailure(ctx, "m", promptscore.KindNetwork)
		r.RecordFailure(ctx, "m", promptscore.KindJudgeParse)

		expected := `
# HELP promptscore_evaluation_failures_total Failed evaluations and judge parse failures
# TYPE promptscore_evaluation_failures_total counter
promptscore_evaluation_failures_total{kind="judge_parse",model="m"} 1
promptscore_evaluation_failures_total{kind="network",model="m"} 2
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "promptscore_evaluation_failures_total"))
	})
}
