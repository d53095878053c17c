package promptscore

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input limits.
const (
	MinInstructionsLength = 10
	MaxInstructionsLength = 32000
	MaxPromptLength       = 32000
	MinAPIKeyLength       = 20
	MinTemperature        = 0.0
	MaxTemperature        = 2.0
)

// ValidationReason identifies why an input is invalid.
type ValidationReason string

// Validation error reasons.
const (
	ErrEmpty         ValidationReason = "empty"
	ErrTooShort      ValidationReason = "too_short"
	ErrTooLong       ValidationReason = "too_long"
	ErrInvalidFormat ValidationReason = "invalid_format"
	ErrOutOfRange    ValidationReason = "out_of_range"
)

// ValidationError describes a single invalid input.
type ValidationError struct {
	Field  string           // Name of the offending input
	Reason ValidationReason // Why the input is invalid
	Limit  float64          // Bound that was violated (too_short, too_long, out_of_range)
	Detail string           // Extra context for invalid_format
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	switch e.Reason {
	case ErrEmpty:
		return fmt.Sprintf("%s is required", e.Field)
	case ErrTooShort:
		return fmt.Sprintf("%s must be at least %d characters", e.Field, int(e.Limit))
	case ErrTooLong:
		return fmt.Sprintf("%s must be at most %d characters", e.Field, int(e.Limit))
	case ErrInvalidFormat:
		if e.Detail != "" {
			return fmt.Sprintf("%s has an invalid format: %s", e.Field, e.Detail)
		}
		return fmt.Sprintf("%s has an invalid format", e.Field)
	case ErrOutOfRange:
		return fmt.Sprintf("%s is out of range (limit %g)", e.Field, e.Limit)
	default:
		return fmt.Sprintf("%s is invalid", e.Field)
	}
}

// ValidationErrors collects every failure found in one input set.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateInstructions checks a system instruction. The trimmed text must
// hold at least MinInstructionsLength characters.
func ValidateInstructions(s string) error {
	trimmed := strings.TrimSpace(s)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return ValidationError{Field: "instructions", Reason: ErrEmpty}
	case n < MinInstructionsLength:
		return ValidationError{Field: "instructions", Reason: ErrTooShort, Limit: MinInstructionsLength}
	case n > MaxInstructionsLength:
		return ValidationError{Field: "instructions", Reason: ErrTooLong, Limit: MaxInstructionsLength}
	}
	return nil
}

// InstructionsComplete reports whether s satisfies ValidateInstructions.
func InstructionsComplete(s string) bool {
	return ValidateInstructions(s) == nil
}

// ValidatePrompt checks a test prompt.
func ValidatePrompt(s string) error {
	trimmed := strings.TrimSpace(s)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return ValidationError{Field: "prompt", Reason: ErrEmpty}
	case n > MaxPromptLength:
		return ValidationError{Field: "prompt", Reason: ErrTooLong, Limit: MaxPromptLength}
	}
	return nil
}

// ValidateAPIKey checks the shape of an API key before it is sent anywhere.
// An empty prefix skips the prefix check.
func ValidateAPIKey(key, prefix string) error {
	if key == "" {
		return ValidationError{Field: "api key", Reason: ErrEmpty}
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return ValidationError{Field: "api key", Reason: ErrInvalidFormat, Detail: "contains whitespace"}
	}
	if prefix != "" && !strings.HasPrefix(key, prefix) {
		return ValidationError{Field: "api key", Reason: ErrInvalidFormat, Detail: fmt.Sprintf("expected prefix %q", prefix)}
	}
	if len(key) < MinAPIKeyLength {
		return ValidationError{Field: "api key", Reason: ErrTooShort, Limit: MinAPIKeyLength}
	}
	return nil
}

// ValidateTemperature checks an optional sampling temperature.
func ValidateTemperature(t *float64) error {
	if t == nil {
		return nil
	}
	if math.IsNaN(*t) || *t < MinTemperature || *t > MaxTemperature {
		return ValidationError{Field: "temperature", Reason: ErrOutOfRange, Limit: MaxTemperature}
	}
	return nil
}

// ValidateMaxTokens checks an optional completion token limit.
func ValidateMaxTokens(n *int) error {
	if n == nil {
		return nil
	}
	if *n <= 0 {
		return ValidationError{Field: "max tokens", Reason: ErrOutOfRange, Limit: 1}
	}
	return nil
}

// Validate checks every input of an evaluation. Returns nil or ValidationErrors.
func (p EvaluationParams) Validate() error {
	var errs ValidationErrors

	add := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	if p.APIKey == "" {
		errs = append(errs, ValidationError{Field: "api key", Reason: ErrEmpty})
	}
	if p.Model.ID == "" {
		errs = append(errs, ValidationError{Field: "model", Reason: ErrEmpty})
	}
	add(ValidateInstructions(p.Instructions))
	add(ValidatePrompt(p.Prompt))
	add(ValidateTemperature(p.Temperature))
	add(ValidateMaxTokens(p.MaxTokens))

	if len(errs) == 0 {
		return nil
	}
	return errs
}
