package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/mock"
	"github.com/fwojciec/promptscore/session"
	"github.com/fwojciec/promptscore/xchacha"
	"github.com/fwojciec/promptscore/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "sk-or-v1-0123456789abcdef"

var testModel = promptscore.Model{ID: "openai/gpt-4o-mini", Provider: "openai"}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func acceptAll() *mock.KeyVerifier {
	return &mock.KeyVerifier{
		VerifyKeyFn: func(context.Context, string) error { return nil },
	}
}

// countingEvaluator returns a completed run with a sequential ID.
func countingEvaluator() *mock.Evaluator {
	var n atomic.Int64
	return &mock.Evaluator{
		RunFn: func(_ context.Context, p promptscore.EvaluationParams) (*promptscore.TestRun, error) {
			id := n.Add(1)
			return &promptscore.TestRun{
				ID:           fmt.Sprintf("run-%d", id),
				Model:        p.Model.ID,
				Instructions: p.Instructions,
				Prompt:       p.Prompt,
				Response:     "Paris.",
				Metrics:      promptscore.SuccessMetrics{OverallScore: 86.8},
				TokenUsage:   promptscore.NewTokenUsage(10, 5),
				Cost:         0.01,
			}, nil
		},
	}
}

func newCipher(t *testing.T) promptscore.Cipher {
	t.Helper()
	c, err := xchacha.NewEphemeral()
	require.NoError(t, err)
	return c
}

func newStore(t *testing.T, evaluator promptscore.Evaluator, opts ...session.Option) *session.Store {
	t.Helper()
	opts = append([]session.Option{session.WithKeyPrefix("sk-or-")}, opts...)
	return session.NewStore(evaluator, acceptAll(), newCipher(t), opts...)
}

// readyForTest drives a store to the Test step.
func readyForTest(t *testing.T, s *session.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SetCredential(ctx, testKey))
	require.NoError(t, s.Select(ctx, testModel))
	require.NoError(t, s.SetInstructions(ctx, "You are a terse assistant."))
	require.NoError(t, s.SetPrompt(ctx, "What is the capital of France?"))
	require.NoError(t, s.RequestStep(ctx, promptscore.StepTest))
}

func TestStore_Initialize(t *testing.T) {
	t.Parallel()

	s := newStore(t, countingEvaluator(), session.WithIDGenerator(func() string { return "session-1" }))
	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.Initialize(context.Background()))

	v := s.View()
	assert.Equal(t, "session-1", v.ID)
	assert.Equal(t, promptscore.StepSetup, v.Step)
	assert.False(t, v.CredentialValid)
	assert.Equal(t, v.CreatedAt.Add(session.DefaultTTL), v.ExpiresAt)
}

func TestStore_SetCredential(t *testing.T) {
	t.Parallel()

	t.Run("stores a verified key", func(t *testing.T) {
		t.Parallel()
		var gotKey string
		verifier := &mock.KeyVerifier{
			VerifyKeyFn: func(_ context.Context, key string) error {
				gotKey = key
				return nil
			},
		}
		s := session.NewStore(countingEvaluator(), verifier, newCipher(t))

		require.NoError(t, s.SetCredential(context.Background(), "  "+testKey+"\n"))
		assert.True(t, s.CredentialValid())
		assert.Equal(t, testKey, gotKey)
	})

	t.Run("rejects a malformed key without calling the provider", func(t *testing.T) {
		t.Parallel()
		verifier := &mock.KeyVerifier{
			VerifyKeyFn: func(context.Context, string) error {
				t.Fatal("verifier must not be called")
				return nil
			},
		}
		s := session.NewStore(countingEvaluator(), verifier, newCipher(t), session.WithKeyPrefix("sk-or-"))

		err := s.SetCredential(context.Background(), "sk-ant-0123456789abcdef")
		require.Error(t, err)
		assert.Equal(t, promptscore.KindValidation, promptscore.ErrorKind(err))
		assert.False(t, s.CredentialValid())
	})

	t.Run("rejected key leaves no credential", func(t *testing.T) {
		t.Parallel()
		verifier := &mock.KeyVerifier{
			VerifyKeyFn: func(context.Context, string) error { return errors.New("401 unauthorized") },
		}
		s := session.NewStore(countingEvaluator(), verifier, newCipher(t))

		err := s.SetCredential(context.Background(), testKey)
		require.Error(t, err)
		assert.Equal(t, promptscore.KindCredential, promptscore.ErrorKind(err))
		assert.False(t, s.CredentialValid())
	})

	t.Run("network failure keeps its kind", func(t *testing.T) {
		t.Parallel()
		verifier := &mock.KeyVerifier{
			VerifyKeyFn: func(context.Context, string) error {
				return promptscore.NetworkError("verify", errors.New("connection reset"))
			},
		}
		s := session.NewStore(countingEvaluator(), verifier, newCipher(t))

		err := s.SetCredential(context.Background(), testKey)
		assert.Equal(t, promptscore.KindNetwork, promptscore.ErrorKind(err))
	})

	t.Run("key reaches the evaluator unsealed", func(t *testing.T) {
		t.Parallel()
		var gotKey string
		evaluator := &mock.Evaluator{
			RunFn: func(ctx context.Context, p promptscore.EvaluationParams) (*promptscore.TestRun, error) {
				gotKey = p.APIKey
				return countingEvaluator().Run(ctx, p)
			},
		}
		s := newStore(t, evaluator)
		readyForTest(t, s)

		_, err := s.RunEvaluation(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testKey, gotKey)
	})
}

func TestStore_StepGating(t *testing.T) {
	t.Parallel()

	t.Run("instructions require a credential and a model", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		ctx := context.Background()

		err := s.RequestStep(ctx, promptscore.StepInstructions)
		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonNoCredential, refusal.Reason)

		require.NoError(t, s.SetCredential(ctx, testKey))
		err = s.RequestStep(ctx, promptscore.StepInstructions)
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonNoModel, refusal.Reason)

		require.NoError(t, s.Select(ctx, testModel))
		require.NoError(t, s.RequestStep(ctx, promptscore.StepInstructions))
		assert.Equal(t, promptscore.StepInstructions, s.Step())
	})

	t.Run("run requires complete instructions", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		ctx := context.Background()
		require.NoError(t, s.SetCredential(ctx, testKey))
		require.NoError(t, s.Select(ctx, testModel))
		require.NoError(t, s.SetInstructions(ctx, "too short"))

		_, err := s.RunEvaluation(ctx)
		var refusal *promptscore.Refusal
		require.ErrorAs(t, err, &refusal)
		assert.Equal(t, promptscore.ReasonInstructionsIncomplete, refusal.Reason)
	})

	t.Run("shortening instructions falls back from Test", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		readyForTest(t, s)

		require.NoError(t, s.SetInstructions(context.Background(), "short"))
		assert.Equal(t, promptscore.StepInstructions, s.Step())
	})

	t.Run("changing the prompt discards the result", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		readyForTest(t, s)
		ctx := context.Background()

		_, err := s.RunEvaluation(ctx)
		require.NoError(t, err)
		require.NoError(t, s.RequestStep(ctx, promptscore.StepTest))

		require.NoError(t, s.SetPrompt(ctx, "What is the capital of Spain?"))
		v := s.View()
		assert.False(t, v.Current.HasResult())
		assert.Equal(t, promptscore.StatusIdle, v.Current.Status)
		assert.Len(t, v.History, 1)
	})

	t.Run("rejects out of range options", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		temp := 3.0
		tokens := 0

		assert.Error(t, s.SetTemperature(context.Background(), &temp))
		assert.Error(t, s.SetMaxTokens(context.Background(), &tokens))
	})
}

func TestStore_RunEvaluation(t *testing.T) {
	t.Parallel()

	t.Run("records the run and advances to Results", func(t *testing.T) {
		t.Parallel()
		var got promptscore.EvaluationParams
		evaluator := &mock.Evaluator{
			RunFn: func(ctx context.Context, p promptscore.EvaluationParams) (*promptscore.TestRun, error) {
				got = p
				return countingEvaluator().Run(ctx, p)
			},
		}
		s := newStore(t, evaluator)
		readyForTest(t, s)
		ctx := context.Background()
		temp := 0.7
		tokens := 256
		judge := promptscore.Model{ID: "anthropic/claude-3.5-haiku"}
		require.NoError(t, s.SetTemperature(ctx, &temp))
		require.NoError(t, s.SetMaxTokens(ctx, &tokens))
		require.NoError(t, s.SetEvaluationModel(ctx, judge))

		run, err := s.RunEvaluation(ctx)
		require.NoError(t, err)

		assert.Equal(t, "run-1", run.ID)
		assert.Equal(t, testModel, got.Model)
		assert.Equal(t, judge, got.EvaluationModel)
		assert.Equal(t, &temp, got.Temperature)
		assert.Equal(t, &tokens, got.MaxTokens)

		v := s.View()
		assert.Equal(t, promptscore.StepResults, v.Step)
		assert.Equal(t, promptscore.StatusCompleted, v.Current.Status)
		assert.Equal(t, "Paris.", v.Current.Response)
		require.NotNil(t, v.Current.Metrics)
		assert.InDelta(t, 86.8, v.Current.Metrics.OverallScore, 0.001)
		assert.Equal(t, "run-1", v.Current.RunID)
		assert.False(t, v.InFlight)
		require.Len(t, v.History, 1)
		assert.Equal(t, "run-1", v.History[0].ID)
	})

	t.Run("sequential runs get distinct ids", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		readyForTest(t, s)
		ctx := context.Background()

		first, err := s.RunEvaluation(ctx)
		require.NoError(t, err)
		second, err := s.RunEvaluation(ctx)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		history := s.History()
		require.Len(t, history, 2)
		assert.Equal(t, first.ID, history[0].ID)
		assert.Equal(t, second.ID, history[1].ID)
	})

	t.Run("rejects a second run while one is in flight", func(t *testing.T) {
		t.Parallel()
		started := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int64
		inner := countingEvaluator()
		evaluator := &mock.Evaluator{
			RunFn: func(ctx context.Context, p promptscore.EvaluationParams) (*promptscore.TestRun, error) {
				calls.Add(1)
				close(started)
				<-release
				return inner.Run(ctx, p)
			},
		}
		s := newStore(t, evaluator)
		readyForTest(t, s)
		ctx := context.Background()

		done := make(chan error, 1)
		go func() {
			_, err := s.RunEvaluation(ctx)
			done <- err
		}()
		<-started
		assert.True(t, s.View().InFlight)

		_, err := s.RunEvaluation(ctx)
		require.Error(t, err)
		assert.Equal(t, promptscore.KindConcurrency, promptscore.ErrorKind(err))
		assert.ErrorIs(t, err, promptscore.ErrEvaluationInFlight)

		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, int64(1), calls.Load())
		assert.Len(t, s.History(), 1)
	})

	t.Run("run started from an earlier step still lands on Results", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		readyForTest(t, s)
		ctx := context.Background()
		require.NoError(t, s.RequestStep(ctx, promptscore.StepInstructions))

		_, err := s.RunEvaluation(ctx)
		require.NoError(t, err)

		v := s.View()
		assert.Equal(t, promptscore.StepResults, v.Step)
		assert.Len(t, v.History, 1)

		_, err = s.RunEvaluation(ctx)
		require.NoError(t, err)
		v = s.View()
		assert.Equal(t, promptscore.StepResults, v.Step)
		assert.Len(t, v.History, 2)
	})

	t.Run("failure keeps the step and records no run", func(t *testing.T) {
		t.Parallel()
		evaluator := &mock.Evaluator{
			RunFn: func(context.Context, promptscore.EvaluationParams) (*promptscore.TestRun, error) {
				return nil, promptscore.NetworkError("eval.primary", errors.New("503 service unavailable"))
			},
		}
		s := newStore(t, evaluator)
		readyForTest(t, s)

		_, err := s.RunEvaluation(context.Background())
		require.Error(t, err)
		assert.True(t, promptscore.IsRetryable(err))

		v := s.View()
		assert.Equal(t, promptscore.StepTest, v.Step)
		assert.Equal(t, promptscore.StatusFailed, v.Current.Status)
		assert.Contains(t, v.Current.Error, "503")
		assert.False(t, v.InFlight)
		assert.Empty(t, v.History)
	})

	t.Run("result arriving after reset is discarded", func(t *testing.T) {
		t.Parallel()
		started := make(chan struct{})
		release := make(chan struct{})
		inner := countingEvaluator()
		evaluator := &mock.Evaluator{
			RunFn: func(ctx context.Context, p promptscore.EvaluationParams) (*promptscore.TestRun, error) {
				close(started)
				<-release
				return inner.Run(ctx, p)
			},
		}
		s := newStore(t, evaluator)
		readyForTest(t, s)
		ctx := context.Background()

		done := make(chan error, 1)
		go func() {
			_, err := s.RunEvaluation(ctx)
			done <- err
		}()
		<-started
		require.NoError(t, s.ResetCurrentTest(ctx))
		close(release)

		assert.ErrorIs(t, <-done, session.ErrStaleEvaluation)
		v := s.View()
		assert.Empty(t, v.History)
		assert.Equal(t, promptscore.CurrentTest{}, v.Current)
		assert.Equal(t, promptscore.StepSetup, v.Step)
		assert.False(t, v.InFlight)
	})
}

func TestStore_ResetCurrentTest(t *testing.T) {
	t.Parallel()

	s := newStore(t, countingEvaluator())
	readyForTest(t, s)
	ctx := context.Background()
	_, err := s.RunEvaluation(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ResetCurrentTest(ctx))

	v := s.View()
	assert.Equal(t, promptscore.StepSetup, v.Step)
	assert.Equal(t, promptscore.CurrentTest{}, v.Current)
	assert.True(t, v.CredentialValid)
	assert.Len(t, v.History, 1)

	// History alone keeps Results reachable.
	require.NoError(t, s.RequestStep(ctx, promptscore.StepResults))
}

func TestStore_ClearHistory(t *testing.T) {
	t.Parallel()

	t.Run("keeps the current test", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		readyForTest(t, s)
		ctx := context.Background()
		_, err := s.RunEvaluation(ctx)
		require.NoError(t, err)

		require.NoError(t, s.ClearHistory(ctx))

		v := s.View()
		assert.Empty(t, v.History)
		assert.True(t, v.Current.HasResult())
		assert.Equal(t, promptscore.StepResults, v.Step)
	})

	t.Run("leaves Results when nothing is left to show", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, countingEvaluator())
		readyForTest(t, s)
		ctx := context.Background()
		_, err := s.RunEvaluation(ctx)
		require.NoError(t, err)
		require.NoError(t, s.ResetCurrentTest(ctx))
		require.NoError(t, s.RequestStep(ctx, promptscore.StepResults))

		require.NoError(t, s.ClearHistory(ctx))
		assert.Equal(t, promptscore.StepSetup, s.Step())
	})
}

func TestStore_History(t *testing.T) {
	t.Parallel()

	s := newStore(t, countingEvaluator())
	readyForTest(t, s)
	_, err := s.RunEvaluation(context.Background())
	require.NoError(t, err)

	history := s.History()
	history[0].ID = "mutated"
	assert.Equal(t, "run-1", s.History()[0].ID)
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	t.Run("expired session is torn down on next operation", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		var ids atomic.Int64
		s := newStore(t, countingEvaluator(),
			session.WithClock(clk.Now),
			session.WithTTL(time.Hour),
			session.WithIDGenerator(func() string { return fmt.Sprintf("session-%d", ids.Add(1)) }))
		readyForTest(t, s)
		ctx := context.Background()

		clk.Advance(59 * time.Minute)
		require.NoError(t, s.SetPrompt(ctx, "Still alive?"))

		clk.Advance(time.Minute)
		err := s.SetPrompt(ctx, "Too late")
		require.ErrorIs(t, err, session.ErrSessionExpired)

		v := s.View()
		assert.Empty(t, v.ID)
		assert.False(t, v.CredentialValid)
		assert.Equal(t, promptscore.CurrentTest{}, v.Current)

		require.NoError(t, s.Initialize(ctx))
		assert.Equal(t, "session-2", s.ID())
	})

	t.Run("expiry is measured from creation", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		s := newStore(t, countingEvaluator(), session.WithClock(clk.Now), session.WithTTL(time.Hour))
		ctx := context.Background()
		require.NoError(t, s.Initialize(ctx))

		for range 3 {
			clk.Advance(15 * time.Minute)
			require.NoError(t, s.SetPrompt(ctx, "activity"))
		}
		clk.Advance(15 * time.Minute)
		assert.ErrorIs(t, s.SetPrompt(ctx, "activity"), session.ErrSessionExpired)
	})

	t.Run("timer tears down an idle session", func(t *testing.T) {
		t.Parallel()
		bus := promptscore.NewBus()
		tornDown := make(chan struct{})
		bus.Subscribe(func(e promptscore.Event) {
			if e.Type == promptscore.EventSessionTornDown {
				close(tornDown)
			}
		})
		s := newStore(t, countingEvaluator(), session.WithTTL(20*time.Millisecond), session.WithBus(bus))
		require.NoError(t, s.SetCredential(context.Background(), testKey))

		select {
		case <-tornDown:
		case <-time.After(2 * time.Second):
			t.Fatal("session was not torn down")
		}
		assert.False(t, s.CredentialValid())
		assert.Empty(t, s.ID())
	})
}

func TestStore_Teardown(t *testing.T) {
	t.Parallel()

	storage, err := zstd.NewStorage(zstd.DefaultMaxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	s := newStore(t, countingEvaluator(), session.WithStorage(storage))
	readyForTest(t, s)
	ctx := context.Background()
	id := s.ID()
	_, err = storage.Load(ctx, id)
	require.NoError(t, err)

	s.Teardown(ctx)

	assert.Empty(t, s.ID())
	assert.False(t, s.CredentialValid())
	_, err = storage.Load(ctx, id)
	assert.ErrorIs(t, err, promptscore.ErrSnapshotNotFound)
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()

	t.Run("restores a persisted session", func(t *testing.T) {
		t.Parallel()
		storage, err := zstd.NewStorage(zstd.DefaultMaxBytes)
		require.NoError(t, err)
		t.Cleanup(func() { _ = storage.Close() })
		cipher := newCipher(t)
		ctx := context.Background()

		first := session.NewStore(countingEvaluator(), acceptAll(), cipher, session.WithStorage(storage))
		readyForTest(t, first)
		_, err = first.RunEvaluation(ctx)
		require.NoError(t, err)

		var gotKey string
		evaluator := &mock.Evaluator{
			RunFn: func(ctx context.Context, p promptscore.EvaluationParams) (*promptscore.TestRun, error) {
				gotKey = p.APIKey
				return countingEvaluator().Run(ctx, p)
			},
		}
		second := session.NewStore(evaluator, acceptAll(), cipher, session.WithStorage(storage))
		require.NoError(t, second.Restore(ctx, first.ID()))

		v := second.View()
		assert.Equal(t, first.ID(), v.ID)
		assert.True(t, v.CredentialValid)
		assert.Equal(t, promptscore.StepResults, v.Step)
		assert.Len(t, v.History, 1)
		assert.Equal(t, "Paris.", v.Current.Response)

		require.NoError(t, second.RequestStep(ctx, promptscore.StepTest))
		_, err = second.RunEvaluation(ctx)
		require.NoError(t, err)
		assert.Equal(t, testKey, gotKey)
	})

	t.Run("refuses an expired snapshot", func(t *testing.T) {
		t.Parallel()
		storage, err := zstd.NewStorage(zstd.DefaultMaxBytes)
		require.NoError(t, err)
		t.Cleanup(func() { _ = storage.Close() })
		clk := newClock()
		cipher := newCipher(t)
		ctx := context.Background()

		first := session.NewStore(countingEvaluator(), acceptAll(), cipher,
			session.WithStorage(storage), session.WithClock(clk.Now))
		require.NoError(t, first.Initialize(ctx))
		id := first.ID()

		clk.Advance(2 * time.Hour)
		second := session.NewStore(countingEvaluator(), acceptAll(), cipher,
			session.WithStorage(storage), session.WithClock(clk.Now))
		require.ErrorIs(t, second.Restore(ctx, id), session.ErrSessionExpired)

		_, err = storage.Load(ctx, id)
		assert.ErrorIs(t, err, promptscore.ErrSnapshotNotFound)
	})

	t.Run("trims the oldest runs from an oversize snapshot", func(t *testing.T) {
		t.Parallel()
		const limit = 3
		var mu sync.Mutex
		var saved []byte
		storage := &mock.SessionStorage{
			SaveFn: func(_ context.Context, _ string, data []byte) error {
				var snap struct {
					History []promptscore.TestRun `json:"history"`
				}
				if err := json.Unmarshal(data, &snap); err != nil {
					return err
				}
				if len(snap.History) > limit {
					return promptscore.ErrSnapshotTooLarge
				}
				mu.Lock()
				defer mu.Unlock()
				saved = data
				return nil
			},
			DeleteFn: func(context.Context, string) error { return nil },
		}
		s := newStore(t, countingEvaluator(), session.WithStorage(storage))
		readyForTest(t, s)
		ctx := context.Background()

		for range 5 {
			require.NoError(t, s.RequestStep(ctx, promptscore.StepTest))
			_, err := s.RunEvaluation(ctx)
			require.NoError(t, err)
		}

		assert.Len(t, s.History(), 5)

		mu.Lock()
		defer mu.Unlock()
		var snap struct {
			History []promptscore.TestRun `json:"history"`
		}
		require.NoError(t, json.Unmarshal(saved, &snap))
		require.Len(t, snap.History, limit)
		assert.Equal(t, "run-3", snap.History[0].ID)
		assert.Equal(t, "run-5", snap.History[2].ID)
	})

	t.Run("snapshot never contains the raw key", func(t *testing.T) {
		t.Parallel()
		storage, err := zstd.NewStorage(zstd.DefaultMaxBytes)
		require.NoError(t, err)
		t.Cleanup(func() { _ = storage.Close() })

		s := newStore(t, countingEvaluator(), session.WithStorage(storage))
		require.NoError(t, s.SetCredential(context.Background(), testKey))

		data, err := storage.Load(context.Background(), s.ID())
		require.NoError(t, err)
		assert.NotContains(t, string(data), testKey)
	})
}

func TestStore_Events(t *testing.T) {
	t.Parallel()

	bus := promptscore.NewBus()
	var mu sync.Mutex
	var types []promptscore.EventType
	bus.Subscribe(func(e promptscore.Event) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.Type)
	})

	var s *session.Store
	// Subscribers may read the store while handling an event.
	bus.Subscribe(func(promptscore.Event) { _ = s.View() })

	s = newStore(t, countingEvaluator(), session.WithBus(bus))
	readyForTest(t, s)
	ctx := context.Background()
	_, err := s.RunEvaluation(ctx)
	require.NoError(t, err)
	require.NoError(t, s.ClearHistory(ctx))
	require.NoError(t, s.ResetCurrentTest(ctx))
	s.Teardown(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []promptscore.EventType{
		promptscore.EventSessionStarted,
		promptscore.EventCredentialVerified,
		promptscore.EventStepChanged, // test
		promptscore.EventEvaluationStarted,
		promptscore.EventEvaluationCompleted,
		promptscore.EventStepChanged, // results
		promptscore.EventHistoryCleared,
		promptscore.EventStepChanged, // setup
		promptscore.EventSessionReset,
		promptscore.EventSessionTornDown,
	}, types)
}
