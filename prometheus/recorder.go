// Package prometheus exports evaluation telemetry as Prometheus metrics.
package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/promptscore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Compile-time interface verification.
var _ promptscore.Recorder = (*Recorder)(nil)

// Recorder implements promptscore.Recorder with Prometheus collectors.
type Recorder struct {
	calls       *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	score       *prometheus.GaugeVec
	cost        *prometheus.CounterVec
}

// NewRecorder registers the promptscore collectors with reg. Registering
// twice with the same registry panics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptscore_model_calls_total",
			Help: "Model calls that returned a completion",
		}, []string{"role", "model"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptscore_tokens_total",
			Help: "Tokens consumed by model calls",
		}, []string{"role", "model", "type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptscore_model_call_duration_seconds",
			Help:    "Latency of model calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"role", "model"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptscore_evaluations_total",
			Help: "Completed evaluations",
		}, []string{"model", "degraded"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptscore_evaluation_failures_total",
			Help: "Failed evaluations and judge parse failures",
		}, []string{"model", "kind"}),
		score: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "promptscore_evaluation_score",
			Help: "Most recent overall score (0-100)",
		}, []string{"model"}),
		cost: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promptscore_cost_usd_total",
			Help: "Estimated spend in USD",
		}, []string{"model"}),
	}
}

func (r *Recorder) RecordCall(_ context.Context, role promptscore.CallRole, model string, usage promptscore.TokenUsage, latency time.Duration) {
	r.calls.WithLabelValues(string(role), model).Inc()
	r.tokens.WithLabelValues(string(role), model, "prompt").Add(float64(usage.PromptTokens))
	r.tokens.WithLabelValues(string(role), model, "completion").Add(float64(usage.CompletionTokens))
	r.latency.WithLabelValues(string(role), model).Observe(latency.Seconds())
}

func (r *Recorder) RecordEvaluation(_ context.Context, run *promptscore.TestRun) {
	degraded := "false"
	if run.Metrics.ParseFailed {
		degraded = "true"
	} else {
		r.score.WithLabelValues(run.Model).Set(run.Metrics.OverallScore)
	}
	r.evaluations.WithLabelValues(run.Model, degraded).Inc()
	r.cost.WithLabelValues(run.Model).Add(run.Cost)
}

func (r *Recorder) RecordFailure(_ context.Context, model string, kind promptscore.Kind) {
	r.failures.WithLabelValues(model, kind.String()).Inc()
}
