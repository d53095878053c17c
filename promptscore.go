// Package promptscore provides domain types for testing a system instruction
// and prompt against a language model and scoring the response with a second
// model acting as a judge.
package promptscore

import (
	"context"
	"io"
	"time"
)

// Model describes a language model offered by a catalog.
type Model struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Provider      string  `json:"provider" yaml:"provider"`
	ContextLength int     `json:"contextLength" yaml:"context_length"`
	Pricing       Pricing `json:"pricing" yaml:"pricing"`
}

// DisplayName returns the human readable name, falling back to the ID.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// Pricing holds the per-token price of a model in USD.
type Pricing struct {
	PromptPerToken     float64 `json:"prompt" yaml:"prompt"`
	CompletionPerToken float64 `json:"completion" yaml:"completion"`
}

// TokenUsage counts the tokens consumed by one or more model calls.
// TotalTokens always equals PromptTokens + CompletionTokens.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens" yaml:"promptTokens"`
	CompletionTokens int `json:"completionTokens" yaml:"completionTokens"`
	TotalTokens      int `json:"totalTokens" yaml:"totalTokens"`
}

// NewTokenUsage returns a TokenUsage with the total derived from its parts.
// Negative counts reported by a provider are treated as zero.
func NewTokenUsage(prompt, completion int) TokenUsage {
	prompt = max(prompt, 0)
	completion = max(completion, 0)
	return TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// Add returns the sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return NewTokenUsage(u.PromptTokens+o.PromptTokens, u.CompletionTokens+o.CompletionTokens)
}

// SuccessMetrics is the judge's assessment of a response.
// Use NewSuccessMetrics or DegradedMetrics to construct one so that
// OverallScore stays consistent with the sub-scores.
type SuccessMetrics struct {
	OverallScore              float64 `json:"overallScore" yaml:"overallScore"`
	CoherenceScore            float64 `json:"coherenceScore" yaml:"coherenceScore"`
	TaskCompletionScore       float64 `json:"taskCompletionScore" yaml:"taskCompletionScore"`
	InstructionAdherenceScore float64 `json:"instructionAdherenceScore" yaml:"instructionAdherenceScore"`
	EfficiencyScore           float64 `json:"efficiencyScore" yaml:"efficiencyScore"`
	Explanation               string  `json:"explanation" yaml:"explanation"`
	ParseFailed               bool    `json:"parseFailed,omitempty" yaml:"parseFailed,omitempty"`
	RawVerdict                string  `json:"rawVerdict,omitempty" yaml:"rawVerdict,omitempty"`
}

// TestStatus is the lifecycle state of the current test.
type TestStatus int

// Test statuses.
const (
	StatusIdle TestStatus = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s TestStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CurrentTest is the test being edited or executed in a session.
type CurrentTest struct {
	Model           *Model          `json:"model,omitempty"`
	EvaluationModel *Model          `json:"evaluationModel,omitempty"`
	Instructions    string          `json:"instructions"`
	Prompt          string          `json:"prompt"`
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxTokens       *int            `json:"maxTokens,omitempty"`
	Response        string          `json:"response,omitempty"`
	Metrics         *SuccessMetrics `json:"metrics,omitempty"`
	TokenUsage      TokenUsage      `json:"tokenUsage"`
	ExecutionTime   time.Duration   `json:"executionTime"`
	Cost            float64         `json:"cost"`
	RunID           string          `json:"runId,omitempty"`
	Status          TestStatus      `json:"status"`
	Error           string          `json:"error,omitempty"`
}

// HasResult reports whether the test holds both a response and its metrics.
func (t CurrentTest) HasResult() bool {
	return t.Response != "" && t.Metrics != nil
}

// ClearResult drops the outcome of a previous execution while keeping inputs.
func (t *CurrentTest) ClearResult() {
	t.Response = ""
	t.Metrics = nil
	t.TokenUsage = TokenUsage{}
	t.ExecutionTime = 0
	t.Cost = 0
	t.RunID = ""
	t.Status = StatusIdle
	t.Error = ""
}

// TestRun is an immutable record of one completed evaluation.
type TestRun struct {
	ID                   string         `json:"id" yaml:"id"`
	Timestamp            time.Time      `json:"timestamp" yaml:"timestamp"`
	Model                string         `json:"model" yaml:"model"`
	ModelProvider        string         `json:"modelProvider" yaml:"modelProvider"`
	EvaluationModel      string         `json:"evaluationModel" yaml:"evaluationModel"`
	Instructions         string         `json:"instructions" yaml:"instructions"`
	Prompt               string         `json:"prompt" yaml:"prompt"`
	Response             string         `json:"response" yaml:"response"`
	Metrics              SuccessMetrics `json:"metrics" yaml:"metrics"`
	TokenUsage           TokenUsage     `json:"tokenUsage" yaml:"tokenUsage"`
	JudgeTokenUsage      TokenUsage     `json:"judgeTokenUsage" yaml:"judgeTokenUsage"`
	ExecutionTimeMs      int64          `json:"executionTimeMs" yaml:"executionTimeMs"`
	JudgeExecutionTimeMs int64          `json:"judgeExecutionTimeMs" yaml:"judgeExecutionTimeMs"`
	Cost                 float64        `json:"cost" yaml:"cost"`
	JudgeCost            float64        `json:"judgeCost" yaml:"judgeCost"`
}

// EvaluationParams are the inputs of a single evaluation.
type EvaluationParams struct {
	APIKey          string
	Model           Model
	EvaluationModel Model
	Instructions    string
	Prompt          string
	Temperature     *float64
	MaxTokens       *int
}

// CompletionRequest is one chat completion against a model.
type CompletionRequest struct {
	APIKey         string
	Model          string
	System         string
	User           string
	Temperature    *float64
	MaxTokens      *int
	ResponseSchema map[string]any // JSON schema the reply should follow, nil for free text
}

// Completion is the reply to a CompletionRequest.
type Completion struct {
	Content string
	Usage   TokenUsage
}

// ChatClient executes chat completions.
type ChatClient interface {
	// Complete sends the request and returns the model's reply.
	// Implementations classify failures with CredentialError and NetworkError.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// KeyVerifier checks that an API key is accepted by a provider.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, apiKey string) error
}

// ModelCatalog lists the models a user can choose from.
type ModelCatalog interface {
	Models(ctx context.Context) ([]Model, error)
}

// VerdictParser turns a judge's raw reply into a Verdict.
type VerdictParser interface {
	// Parse never fails; a malformed reply yields a result carrying a ParseFailure.
	Parse(text string) VerdictResult
	// Schema returns the JSON schema a verdict must satisfy.
	Schema() map[string]any
}

// Evaluator runs an evaluation end to end.
type Evaluator interface {
	Run(ctx context.Context, params EvaluationParams) (*TestRun, error)
}

// Cipher seals and opens small secrets.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// SessionStorage holds serialized session snapshots for the lifetime of a session.
type SessionStorage interface {
	Save(ctx context.Context, sessionID string, data []byte) error
	// Load returns ErrSnapshotNotFound when nothing is stored under sessionID.
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Delete(ctx context.Context, sessionID string) error
}

// CallRole distinguishes the two model calls of an evaluation.
type CallRole string

// Call roles.
const (
	RolePrimary CallRole = "primary"
	RoleJudge   CallRole = "judge"
)

// Recorder receives evaluation telemetry.
type Recorder interface {
	RecordCall(ctx context.Context, role CallRole, model string, usage TokenUsage, latency time.Duration)
	RecordEvaluation(ctx context.Context, run *TestRun)
	RecordFailure(ctx context.Context, model string, kind Kind)
}

// Recorders fans telemetry out to several recorders.
type Recorders []Recorder

// Compile-time interface verification.
var _ Recorder = Recorders(nil)

func (rs Recorders) RecordCall(ctx context.Context, role CallRole, model string, usage TokenUsage, latency time.Duration) {
	for _, r := range rs {
		r.RecordCall(ctx, role, model, usage, latency)
	}
}

func (rs Recorders) RecordEvaluation(ctx context.Context, run *TestRun) {
	for _, r := range rs {
		r.RecordEvaluation(ctx, run)
	}
}

func (rs Recorders) RecordFailure(ctx context.Context, model string, kind Kind) {
	for _, r := range rs {
		r.RecordFailure(ctx, model, kind)
	}
}

// Exporter writes test runs in a specific format.
type Exporter interface {
	Export(w io.Writer, runs []TestRun) error
}

// Clipboard provides copy-to-clipboard functionality.
type Clipboard interface {
	Copy(content string) error
}
