package promptscore_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/promptscore"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want promptscore.Kind
	}{
		{"nil", nil, promptscore.KindInternal},
		{"plain", base, promptscore.KindInternal},
		{"credential", promptscore.CredentialError("op", base), promptscore.KindCredential},
		{"wrapped network", fmt.Errorf("calling: %w", promptscore.NetworkError("op", base)), promptscore.KindNetwork},
		{"concurrency", promptscore.ConcurrencyRejection("run"), promptscore.KindConcurrency},
		{"validation error", promptscore.ValidationError{Field: "prompt", Reason: promptscore.ErrEmpty}, promptscore.KindValidation},
		{"validation errors", promptscore.ValidationErrors{{Field: "prompt", Reason: promptscore.ErrEmpty}}, promptscore.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, promptscore.ErrorKind(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	err := promptscore.ConcurrencyRejection("session.run")

	assert.ErrorIs(t, err, promptscore.ErrEvaluationInFlight)
	assert.Equal(t, "session.run: concurrency error: an evaluation is already running", err.Error())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, promptscore.IsRetryable(promptscore.NetworkError("op", errors.New("timeout"))))
	assert.False(t, promptscore.IsRetryable(promptscore.CredentialError("op", errors.New("401"))))
	assert.False(t, promptscore.IsRetryable(errors.New("other")))
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	base := errors.New("api error")

	tests := []struct {
		code int
		want promptscore.Kind
	}{
		{401, promptscore.KindCredential},
		{403, promptscore.KindCredential},
		{408, promptscore.KindNetwork},
		{429, promptscore.KindNetwork},
		{500, promptscore.KindNetwork},
		{529, promptscore.KindNetwork},
		{400, promptscore.KindInternal},
		{404, promptscore.KindInternal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			t.Parallel()

			err := promptscore.ClassifyStatus("op", tt.code, base)
			assert.Equal(t, tt.want, promptscore.ErrorKind(err))
			assert.ErrorIs(t, err, base)
		})
	}
}
