package promptscore

import "math"

// Score weights. They sum to 1 so the overall score shares the 0-100 scale
// of the sub-scores.
const (
	WeightCoherence            = 0.20
	WeightTaskCompletion       = 0.35
	WeightInstructionAdherence = 0.35
	WeightEfficiency           = 0.10
)

// Score bounds. Sub-scores outside the bounds are clamped, not rejected.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Verdict is the structured reply expected from the judge model. Scores are
// whole numbers on the wire; the schema rejects fractions.
type Verdict struct {
	Coherence            float64 `json:"coherence" jsonschema:"type=integer,description=Logical flow and clarity of the response (0-100)"`
	TaskCompletion       float64 `json:"taskCompletion" jsonschema:"type=integer,description=How fully the response accomplishes the prompt (0-100)"`
	InstructionAdherence float64 `json:"instructionAdherence" jsonschema:"type=integer,description=How closely the response follows the system instruction (0-100)"`
	Efficiency           float64 `json:"efficiency" jsonschema:"type=integer,description=Conciseness without losing substance (0-100)"`
	Explanation          string  `json:"explanation" jsonschema:"description=Short justification of the scores"`
}

// ParseFailure describes a judge reply that could not be turned into a Verdict.
type ParseFailure struct {
	Raw    string // The judge's reply, verbatim
	Reason string // What was wrong with it
}

// VerdictResult is either a parsed Verdict or a ParseFailure, never both.
type VerdictResult struct {
	Verdict *Verdict
	Failure *ParseFailure
}

// OK reports whether the result carries a verdict.
func (r VerdictResult) OK() bool {
	return r.Verdict != nil
}

// ParsedVerdict wraps a successfully parsed verdict.
func ParsedVerdict(v Verdict) VerdictResult {
	return VerdictResult{Verdict: &v}
}

// FailedVerdict wraps a reply that could not be parsed.
func FailedVerdict(raw, reason string) VerdictResult {
	return VerdictResult{Failure: &ParseFailure{Raw: raw, Reason: reason}}
}

// ClampScore restricts v to [MinScore, MaxScore]. NaN becomes MinScore.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// OverallScore is the weighted blend of the four sub-scores, unrounded.
func OverallScore(coherence, taskCompletion, instructionAdherence, efficiency float64) float64 {
	return WeightCoherence*coherence +
		WeightTaskCompletion*taskCompletion +
		WeightInstructionAdherence*instructionAdherence +
		WeightEfficiency*efficiency
}

// NewSuccessMetrics clamps the verdict's sub-scores and derives the overall score.
func NewSuccessMetrics(v Verdict) SuccessMetrics {
	m := SuccessMetrics{
		CoherenceScore:            ClampScore(v.Coherence),
		TaskCompletionScore:       ClampScore(v.TaskCompletion),
		InstructionAdherenceScore: ClampScore(v.InstructionAdherence),
		EfficiencyScore:           ClampScore(v.Efficiency),
		Explanation:               v.Explanation,
	}
	m.OverallScore = OverallScore(m.CoherenceScore, m.TaskCompletionScore, m.InstructionAdherenceScore, m.EfficiencyScore)
	return m
}

// DegradedMetrics is recorded when the judge's verdict cannot be parsed.
// Every score is zero and the raw reply is kept for inspection.
func DegradedMetrics(f ParseFailure) SuccessMetrics {
	explanation := "The evaluation could not be parsed; scores are unavailable."
	if f.Reason != "" {
		explanation += " (" + f.Reason + ")"
	}
	return SuccessMetrics{
		Explanation: explanation,
		ParseFailed: true,
		RawVerdict:  f.Raw,
	}
}

// Cost prices token usage with a model's per-token rates.
func Cost(usage TokenUsage, p Pricing) float64 {
	return float64(usage.PromptTokens)*p.PromptPerToken + float64(usage.CompletionTokens)*p.CompletionPerToken
}
