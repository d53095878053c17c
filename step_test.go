package promptscore_test

import (
	"testing"

	"github.com/fwojciec/promptscore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyProgress() promptscore.Progress {
	return promptscore.Progress{
		CredentialValid: true,
		ModelSelected:   true,
		Instructions:    "You are a concise assistant.",
	}
}

func TestProgress_Accessible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		progress promptscore.Progress
		want     map[promptscore.Step]bool
	}{
		{
			name:     "fresh session only reaches setup",
			progress: promptscore.Progress{},
			want: map[promptscore.Step]bool{
				promptscore.StepSetup:        true,
				promptscore.StepInstructions: false,
				promptscore.StepTest:         false,
				promptscore.StepResults:      false,
			},
		},
		{
			name:     "credential without model",
			progress: promptscore.Progress{CredentialValid: true},
			want: map[promptscore.Step]bool{
				promptscore.StepSetup:        true,
				promptscore.StepInstructions: false,
				promptscore.StepTest:         false,
				promptscore.StepResults:      false,
			},
		},
		{
			name:     "setup complete with short instructions",
			progress: promptscore.Progress{CredentialValid: true, ModelSelected: true, Instructions: "   short   "},
			want: map[promptscore.Step]bool{
				promptscore.StepSetup:        true,
				promptscore.StepInstructions: true,
				promptscore.StepTest:         false,
				promptscore.StepResults:      false,
			},
		},
		{
			name:     "instructions complete",
			progress: readyProgress(),
			want: map[promptscore.Step]bool{
				promptscore.StepSetup:        true,
				promptscore.StepInstructions: true,
				promptscore.StepTest:         true,
				promptscore.StepResults:      false,
			},
		},
		{
			name: "test complete",
			progress: func() promptscore.Progress {
				p := readyProgress()
				p.HasResponse = true
				p.HasMetrics = true
				return p
			}(),
			want: map[promptscore.Step]bool{
				promptscore.StepSetup:        true,
				promptscore.StepInstructions: true,
				promptscore.StepTest:         true,
				promptscore.StepResults:      true,
			},
		},
		{
			name:     "history keeps results reachable after instructions are cleared",
			progress: promptscore.Progress{CredentialValid: true, ModelSelected: true, HistoryLen: 2},
			want: map[promptscore.Step]bool{
				promptscore.StepSetup:        true,
				promptscore.StepInstructions: true,
				promptscore.StepTest:         false,
				promptscore.StepResults:      true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for step, want := range tt.want {
				assert.Equal(t, want, tt.progress.Accessible(step), "step %s", step)
			}
		})
	}
}

func TestProgress_MonotonicUnlocking(t *testing.T) {
	t.Parallel()

	// Whenever Test is accessible, Instructions and Setup are too.
	progresses := []promptscore.Progress{
		{},
		{CredentialValid: true},
		{ModelSelected: true, Instructions: "long enough instructions"},
		readyProgress(),
		{CredentialValid: true, ModelSelected: true, HasResponse: true, HasMetrics: true},
	}
	for _, p := range progresses {
		if p.Accessible(promptscore.StepTest) {
			assert.True(t, p.Accessible(promptscore.StepInstructions))
		}
		if p.Accessible(promptscore.StepInstructions) {
			assert.True(t, p.Accessible(promptscore.StepSetup))
		}
	}
}

func TestMachine_Request(t *testing.T) {
	t.Parallel()

	t.Run("refuses inaccessible step with reason", func(t *testing.T) {
		t.Parallel()

		m := promptscore.NewMachine()
		next, err := m.Request(promptscore.StepInstructions, promptscore.Progress{})

		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonNoCredential, refusal.Reason)
		assert.Equal(t, promptscore.StepSetup, next.Current())
	})

	t.Run("reports missing model", func(t *testing.T) {
		t.Parallel()

		_, err := promptscore.NewMachine().Request(promptscore.StepTest, promptscore.Progress{CredentialValid: true})

		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonNoModel, refusal.Reason)
	})

	t.Run("reports incomplete instructions", func(t *testing.T) {
		t.Parallel()

		p := promptscore.Progress{CredentialValid: true, ModelSelected: true, Instructions: "hi"}
		_, err := promptscore.NewMachine().Request(promptscore.StepTest, p)

		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonInstructionsIncomplete, refusal.Reason)
	})

	t.Run("reports missing test result", func(t *testing.T) {
		t.Parallel()

		_, err := promptscore.NewMachine().Request(promptscore.StepResults, readyProgress())

		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonTestIncomplete, refusal.Reason)
	})

	t.Run("moves forward and backward between accessible steps", func(t *testing.T) {
		t.Parallel()

		p := readyProgress()
		m, err := promptscore.NewMachine().Request(promptscore.StepTest, p)
		require.NoError(t, err)
		assert.Equal(t, promptscore.StepTest, m.Current())

		m, err = m.Request(promptscore.StepSetup, p)
		require.NoError(t, err)
		assert.Equal(t, promptscore.StepSetup, m.Current())
	})

	t.Run("rejects unknown step", func(t *testing.T) {
		t.Parallel()

		_, err := promptscore.NewMachine().Request(promptscore.Step(9), readyProgress())

		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonUnknownStep, refusal.Reason)
	})
}

func TestMachine_CompleteEvaluation(t *testing.T) {
	t.Parallel()

	p := readyProgress()
	m, err := promptscore.NewMachine().Request(promptscore.StepTest, p)
	require.NoError(t, err)

	p.HasResponse = true
	p.HasMetrics = true
	m, err = m.CompleteEvaluation(p)
	require.NoError(t, err)
	assert.Equal(t, promptscore.StepResults, m.Current())

	t.Run("is a no-op away from the test step", func(t *testing.T) {
		t.Parallel()

		m, err := promptscore.NewMachine().CompleteEvaluation(p)
		require.NoError(t, err)
		assert.Equal(t, promptscore.StepSetup, m.Current())
	})
}

func TestMachine_Reconcile(t *testing.T) {
	t.Parallel()

	p := readyProgress()
	m, err := promptscore.NewMachine().Request(promptscore.StepTest, p)
	require.NoError(t, err)

	p.Instructions = ""
	assert.Equal(t, promptscore.StepInstructions, m.Reconcile(p).Current())

	p.CredentialValid = false
	assert.Equal(t, promptscore.StepSetup, m.Reconcile(p).Current())
}

func TestMachine_Reset(t *testing.T) {
	t.Parallel()

	m, err := promptscore.NewMachine().Request(promptscore.StepTest, readyProgress())
	require.NoError(t, err)

	assert.Equal(t, promptscore.StepSetup, m.Reset().Current())
}

func TestStep_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "setup", promptscore.StepSetup.String())
	assert.Equal(t, "results", promptscore.StepResults.String())
	assert.Equal(t, "Instructions", promptscore.StepInstructions.Title())
	assert.Equal(t, "step(7)", promptscore.Step(7).String())
}
