// Package otel exports evaluation telemetry through OpenTelemetry metrics.
package otel

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName identifies the instruments created by this package.
const MeterName = "github.com/fwojciec/promptscore"

// Compile-time interface verification.
var _ promptscore.Recorder = (*Recorder)(nil)

// Recorder implements promptscore.Recorder with OpenTelemetry instruments.
// Instruments that fail to initialize are replaced by no-ops so telemetry
// never blocks an evaluation.
type Recorder struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	callDuration     metric.Float64Histogram
	evaluations      metric.Int64Counter
	failures         metric.Int64Counter
	score            metric.Float64Histogram
	cost             metric.Float64Counter
}

// NewRecorder creates instruments on mp, or on the global provider when mp
// is nil.
func NewRecorder(ctx context.Context, mp metric.MeterProvider) *Recorder {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName, metric.WithInstrumentationVersion("1.0.0"))
	log := clog.FromContext(ctx)

	int64Counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			log.Warn("Failed to create counter, metric disabled", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}
	histogram := func(name, desc, unit string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			log.Warn("Failed to create histogram, metric disabled", "name", name, "error", err)
			return noop.Float64Histogram{}
		}
		return h
	}

	cost, err := meter.Float64Counter("promptscore.cost",
		metric.WithDescription("Estimated spend"), metric.WithUnit("{USD}"))
	if err != nil {
		log.Warn("Failed to create counter, metric disabled", "name", "promptscore.cost", "error", err)
		cost = noop.Float64Counter{}
	}

	return &Recorder{
		promptTokens:     int64Counter("genai.token.prompt", "The number of prompt tokens used", "{tokens}"),
		completionTokens: int64Counter("genai.token.completion", "The number of completion tokens used", "{tokens}"),
		callDuration:     histogram("genai.call.duration", "Latency of model calls", "s"),
		evaluations:      int64Counter("promptscore.evaluations", "Completed evaluations", "{evaluations}"),
		failures:         int64Counter("promptscore.failures", "Failed evaluations and judge parse failures", "{failures}"),
		score:            histogram("promptscore.score", "Overall score of scored evaluations", "1"),
		cost:             cost,
	}
}

func (r *Recorder) RecordCall(ctx context.Context, role promptscore.CallRole, model string, usage promptscore.TokenUsage, latency time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("role", string(role)),
	)
	r.promptTokens.Add(ctx, int64(usage.PromptTokens), attrs)
	r.completionTokens.Add(ctx, int64(usage.CompletionTokens), attrs)
	r.callDuration.Record(ctx, latency.Seconds(), attrs)
}

func (r *Recorder) RecordEvaluation(ctx context.Context, run *promptscore.TestRun) {
	model := attribute.String("model", run.Model)
	r.evaluations.Add(ctx, 1, metric.WithAttributes(model, attribute.Bool("degraded", run.Metrics.ParseFailed)))
	if !run.Metrics.ParseFailed {
		r.score.Record(ctx, run.Metrics.OverallScore, metric.WithAttributes(model))
	}
	r.cost.Add(ctx, run.Cost, metric.WithAttributes(model))
}

func (r *Recorder) RecordFailure(ctx context.Context, model string, kind promptscore.Kind) {
	r.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("kind", kind.String()),
	))
}
