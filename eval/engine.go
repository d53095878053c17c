// Package eval runs evaluations: a primary model call, a judge model call,
// verdict parsing and scoring.
package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ promptscore.Evaluator = (*Engine)(nil)

// DefaultCallTimeout bounds each outbound model call.
const DefaultCallTimeout = 30 * time.Second

// Engine implements promptscore.Evaluator.
type Engine struct {
	client   promptscore.ChatClient
	parser   promptscore.VerdictParser
	recorder promptscore.Recorder
	retry    RetryConfig
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the telemetry sink.
func WithRecorder(r promptscore.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRetryConfig sets the retry policy for network failures.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// WithCallTimeout sets the timeout of each model call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithClock sets the time source used for run timestamps and latency.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator sets the function producing run IDs.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates an Engine that calls models through client and reads
// verdicts with parser.
func NewEngine(client promptscore.ChatClient, parser promptscore.VerdictParser, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		parser:   parser,
		recorder: promptscore.Recorders(nil),
		retry:    DefaultRetryConfig(),
		timeout:  DefaultCallTimeout,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the primary call, then the judge call, and returns the
// resulting TestRun. A failed primary call is terminal. A judge reply that
// cannot be parsed after one retry yields degraded metrics instead of an
// error. Session state is never touched.
func (e *Engine) Run(ctx context.Context, params promptscore.EvaluationParams) (*promptscore.TestRun, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	judgeModel := params.EvaluationModel
	if judgeModel.ID == "" {
		judgeModel = params.Model
	}

	log := clog.FromContext(ctx).With("model", params.Model.ID).With("judge", judgeModel.ID)
	ctx = clog.WithLogger(ctx, log)

	primary, primaryLatency, err := e.call(ctx, promptscore.RolePrimary, promptscore.CompletionRequest{
		APIKey:      params.APIKey,
		Model:       params.Model.ID,
		System:      params.Instructions,
		User:        params.Prompt,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		e.recorder.RecordFailure(ctx, params.Model.ID, promptscore.ErrorKind(err))
		log.Error("Primary call failed", "error", err)
		return nil, fmt.Errorf("primary call: %w", err)
	}
	if strings.TrimSpace(primary.Content) == "" {
		e.recorder.RecordFailure(ctx, params.Model.ID, promptscore.KindInternal)
		return nil, fmt.Errorf("primary call: %w", promptscore.ErrEmptyResponse)
	}

	metrics, judgeUsage, judgeLatency, err := e.judge(ctx, params, judgeModel, primary.Content)
	if err != nil {
		e.recorder.RecordFailure(ctx, judgeModel.ID, promptscore.ErrorKind(err))
		log.Error("Judge call failed", "error", err)
		return nil, fmt.Errorf("judge call: %w", err)
	}

	primaryCost := promptscore.Cost(primary.Usage, params.Model.Pricing)
	judgeCost := promptscore.Cost(judgeUsage, judgeModel.Pricing)

	run := &promptscore.TestRun{
		ID:                   e.newID(),
		Timestamp:            e.now().UTC(),
		Model:                params.Model.ID,
		ModelProvider:        params.Model.Provider,
		EvaluationModel:      judgeModel.ID,
		Instructions:         params.Instructions,
		Prompt:               params.Prompt,
		Response:             primary.Content,
		Metrics:              metrics,
		TokenUsage:           primary.Usage,
		JudgeTokenUsage:      judgeUsage,
		ExecutionTimeMs:      primaryLatency.Milliseconds(),
		JudgeExecutionTimeMs: judgeLatency.Milliseconds(),
		Cost:                 primaryCost + judgeCost,
		JudgeCost:            judgeCost,
	}
	e.recorder.RecordEvaluation(ctx, run)
	log.Info("Evaluation completed",
		"run", run.ID,
		"score", run.Metrics.OverallScore,
		"parse_failed", run.Metrics.ParseFailed,
		"tokens", run.TokenUsage.TotalTokens+run.JudgeTokenUsage.TotalTokens,
		"cost", run.Cost)
	return run, nil
}

// judge asks the judge model for a verdict. Usage and latency accumulate
// across attempts.
func (e *Engine) judge(ctx context.Context, params promptscore.EvaluationParams, judgeModel promptscore.Model, response string) (promptscore.SuccessMetrics, promptscore.TokenUsage, time.Duration, error) {
	temp := JudgeTemperature
	maxTokens := JudgeMaxTokens
	req := promptscore.CompletionRequest{
		APIKey:         params.APIKey,
		Model:          judgeModel.ID,
		System:         JudgeSystemPrompt,
		User:           BuildJudgePrompt(params.Instructions, params.Prompt, response),
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseSchema: e.parser.Schema(),
	}

	var usage promptscore.TokenUsage
	var elapsed time.Duration
	var failure promptscore.ParseFailure

	for attempt := 1; attempt <= judgeAttempts; attempt++ {
		reply, latency, err := e.call(ctx, promptscore.RoleJudge, req)
		if err != nil {
			return promptscore.SuccessMetrics{}, usage, elapsed, err
		}
		usage = usage.Add(reply.Usage)
		elapsed += latency

		result := e.parser.Parse(reply.Content)
		if result.OK() {
			return promptscore.NewSuccessMetrics(*result.Verdict), usage, elapsed, nil
		}
		failure = *result.Failure
		clog.FromContext(ctx).Warn("Judge verdict could not be parsed",
			"attempt", attempt,
			"reason", failure.Reason)
	}

	e.recorder.RecordFailure(ctx, judgeModel.ID, promptscore.KindJudgeParse)
	return promptscore.DegradedMetrics(failure), usage, elapsed, nil
}

// call performs one model call bounded by the call timeout, retrying
// network failures.
func (e *Engine) call(ctx context.Context, role promptscore.CallRole, req promptscore.CompletionRequest) (*promptscore.Completion, time.Duration, error) {
	var latency time.Duration
	op := "eval." + string(role)

	completion, err := retryWithBackoff(ctx, e.retry, op, func() (*promptscore.Completion, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		start := e.now()
		c, err := e.client.Complete(callCtx, req)
		latency = e.now().Sub(start)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, promptscore.NetworkError(op, fmt.Errorf("timed out after %s: %w", e.timeout, err))
			}
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("%s: nil completion", op)
		}
		return c, nil
	})
	if err != nil {
		return nil, latency, err
	}

	clog.FromContext(ctx).Debug("Model call completed",
		"role", string(role),
		"latency", latency,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens)
	e.recorder.RecordCall(ctx, role, req.Model, completion.Usage, latency)
	return completion, latency, nil
}
