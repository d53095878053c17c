package mock

import (
	"context"
	"time"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var (
	_ promptscore.Evaluator     = (*Evaluator)(nil)
	_ promptscore.VerdictParser = (*VerdictParser)(nil)
	_ promptscore.Recorder      = (*Recorder)(nil)
)

// Evaluator is a mock implementation of promptscore.Evaluator.
type Evaluator struct {
	RunFn func(ctx context.Context, params promptscore.EvaluationParams) (*promptscore.TestRun, error)
}

func (e *Evaluator) Run(ctx context.Context, params promptscore.EvaluationParams) (*promptscore.TestRun, error) {
	return e.RunFn(ctx, params)
}

// VerdictParser is a mock implementation of promptscore.VerdictParser.
type VerdictParser struct {
	ParseFn  func(text string) promptscore.VerdictResult
	SchemaFn func() map[string]any
}

func (p *VerdictParser) Parse(text string) promptscore.VerdictResult {
	return p.ParseFn(text)
}

func (p *VerdictParser) Schema() map[string]any {
	if p.SchemaFn == nil {
		return nil
	}
	return p.SchemaFn()
}

// Recorder is a mock implementation of promptscore.Recorder.
// Nil functions are ignored.
type Recorder struct {
	RecordCallFn       func(ctx context.Context, role promptscore.CallRole, model string, usage promptscore.TokenUsage, latency time.Duration)
	RecordEvaluationFn func(ctx context.Context, run *promptscore.TestRun)
	RecordFailureFn    func(ctx context.Context, model string, kind promptscore.Kind)
}

func (r *Recorder) RecordCall(ctx context.Context, role promptscore.CallRole, model string, usage promptscore.TokenUsage, latency time.Duration) {
	if r.RecordCallFn != nil {
		r.RecordCallFn(ctx, role, model, usage, latency)
	}
}

func (r *Recorder) RecordEvaluation(ctx context.Context, run *promptscore.TestRun) {
	if r.RecordEvaluationFn != nil {
		r.RecordEvaluationFn(ctx, run)
	}
}

func (r *Recorder) RecordFailure(ctx context.Context, model string, kind promptscore.Kind) {
	if r.RecordFailureFn != nil {
		r.RecordFailureFn(ctx, model, kind)
	}
}
