// Package session owns the state of a prompt-testing session: the sealed
// credential, the current test, run history, and the wizard step.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a session measured from its creation.
const DefaultTTL = time.Hour

var (
	// ErrSessionExpired is returned by the first operation after a session
	// outlived its TTL. The session is torn down before returning.
	ErrSessionExpired = errors.New("session expired")

	// ErrStaleEvaluation is returned when an evaluation finishes after the
	// session was reset or torn down. Its result is discarded.
	ErrStaleEvaluation = errors.New("evaluation result discarded: session changed while it was running")
)

// Store is the single owner of session state. All methods are safe for
// concurrent use. The lock is never held across network calls.
type Store struct {
	evaluator promptscore.Evaluator
	verifier  promptscore.KeyVerifier
	storage   promptscore.SessionStorage
	bus       *promptscore.Bus
	now       func() time.Time
	newID     func() string
	keyPrefix string

	mu              sync.Mutex
	vault           *Vault
	id              string
	createdAt       time.Time
	ttl             time.Duration
	credentialValid bool
	current         promptscore.CurrentTest
	history         []promptscore.TestRun
	machine         promptscore.Machine
	inFlight        bool
	generation      uint64
	timer           *time.Timer
	pending         []promptscore.Event
}

// Option configures a Store.
type Option func(*Store)

// WithStorage persists snapshots after every mutation.
func WithStorage(storage promptscore.SessionStorage) Option {
	return func(s *Store) {
		s.storage = storage
	}
}

// WithBus publishes session events on bus.
func WithBus(bus *promptscore.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the function producing session IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithKeyPrefix requires API keys to start with prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.keyPrefix = prefix
	}
}

// NewStore creates a Store. Credentials are sealed with cipher, checked
// with verifier, and evaluations are delegated to evaluator.
func NewStore(evaluator promptscore.Evaluator, verifier promptscore.KeyVerifier, cipher promptscore.Cipher, opts ...Option) *Store {
	s := &Store{
		evaluator: evaluator,
		verifier:  verifier,
		vault:     NewVault(cipher),
		now:       time.Now,
		newID:     uuid.NewString,
		ttl:       DefaultTTL,
		machine:   promptscore.NewMachine(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is a point-in-time copy of session state for rendering.
type View struct {
	ID              string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	Step            promptscore.Step
	CredentialValid bool
	InFlight        bool
	Current         promptscore.CurrentTest
	History         []promptscore.TestRun
	Progress        promptscore.Progress
}

// Initialize starts a session if none is active. It is a no-op on a live
// session.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	s.persistLocked(ctx)
	return nil
}

// ID returns the active session ID, or "" when there is none.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// View returns a copy of the session state.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:              s.id,
		CreatedAt:       s.createdAt,
		Step:            s.machine.Current(),
		CredentialValid: s.credentialValid,
		InFlight:        s.inFlight,
		Current:         cloneTest(s.current),
		History:         cloneRuns(s.history),
		Progress:        s.progressLocked(),
	}
	if s.id != "" {
		v.ExpiresAt = s.createdAt.Add(s.ttl)
	}
	return v
}

// History returns a copy of the run history, oldest first.
func (s *Store) History() []promptscore.TestRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRuns(s.history)
}

// Step returns the active wizard step.
func (s *Store) Step() promptscore.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// SetCredential validates, verifies and seals an API key. The key is
// checked against the provider outside the lock. A rejected key leaves the
// session without a valid credential.
func (s *Store) SetCredential(ctx context.Context, raw string) error {
	key := strings.TrimSpace(raw)
	if err := promptscore.ValidateAPIKey(key, s.keyPrefix); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.ensureLocked(ctx); err != nil {
		s.unlock()
		return err
	}
	id := s.id
	s.unlock()

	verifyErr := s.verifier.VerifyKey(ctx, key)

	s.mu.Lock()
	defer s.unlock()
	if s.id != id {
		return ErrSessionExpired
	}
	log := clog.FromContext(ctx).With("session", s.id)
	if verifyErr != nil {
		s.vault.Clear()
		s.credentialValid = false
		s.reconcileLocked()
		s.persistLocked(ctx)
		log.Warn("API key rejected", "error", verifyErr)
		if promptscore.ErrorKind(verifyErr) == promptscore.KindInternal {
			return promptscore.CredentialError("session.set_credential", verifyErr)
		}
		return verifyErr
	}
	if err := s.vault.Put(key); err != nil {
		s.credentialValid = false
		return err
	}
	s.credentialValid = true
	s.emitLocked(promptscore.Event{Type: promptscore.EventCredentialVerified})
	s.persistLocked(ctx)
	log.Info("API key verified")
	return nil
}

// CredentialValid reports whether a verified key is held.
func (s *Store) CredentialValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentialValid
}

// Select sets the model under test. Choosing a different model discards a
// previous result.
func (s *Store) Select(ctx context.Context, model promptscore.Model) error {
	return s.mutate(ctx, func() {
		if s.current.Model == nil || s.current.Model.ID != model.ID {
			s.current.ClearResult()
		}
		m := model
		s.current.Model = &m
	})
}

// SetEvaluationModel sets the judge model. A zero Model reverts to judging
// with the model under test.
func (s *Store) SetEvaluationModel(ctx context.Context, model promptscore.Model) error {
	return s.mutate(ctx, func() {
		if model.ID == "" {
			s.current.EvaluationModel = nil
			return
		}
		m := model
		s.current.EvaluationModel = &m
	})
}

// SetInstructions sets the system instruction. Changing it discards a
// previous result.
func (s *Store) SetInstructions(ctx context.Context, text string) error {
	return s.mutate(ctx, func() {
		if text != s.current.Instructions {
			s.current.ClearResult()
		}
		s.current.Instructions = text
	})
}

// SetPrompt sets the user prompt. Changing it discards a previous result.
func (s *Store) SetPrompt(ctx context.Context, text string) error {
	return s.mutate(ctx, func() {
		if text != s.current.Prompt {
			s.current.ClearResult()
		}
		s.current.Prompt = text
	})
}

// SetTemperature sets the sampling temperature, nil for the provider default.
func (s *Store) SetTemperature(ctx context.Context, t *float64) error {
	if err := promptscore.ValidateTemperature(t); err != nil {
		return err
	}
	return s.mutate(ctx, func() {
		if t == nil {
			s.current.Temperature = nil
			return
		}
		v := *t
		s.current.Temperature = &v
	})
}

// SetMaxTokens sets the response token limit, nil for the provider default.
func (s *Store) SetMaxTokens(ctx context.Context, n *int) error {
	if err := promptscore.ValidateMaxTokens(n); err != nil {
		return err
	}
	return s.mutate(ctx, func() {
		if n == nil {
			s.current.MaxTokens = nil
			return
		}
		v := *n
		s.current.MaxTokens = &v
	})
}

// RequestStep moves the wizard to step. It returns a *promptscore.Refusal
// when the step's preconditions are not met.
func (s *Store) RequestStep(ctx context.Context, step promptscore.Step) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	m, err := s.machine.Request(step, s.progressLocked())
	if err != nil {
		return err
	}
	s.setMachineLocked(m)
	s.persistLocked(ctx)
	return nil
}

// RunEvaluation evaluates the current test. Only one evaluation may run at a
// time; a second request fails with a concurrency rejection. A result that
// arrives after the session was reset or torn down is discarded with
// ErrStaleEvaluation.
func (s *Store) RunEvaluation(ctx context.Context) (*promptscore.TestRun, error) {
	s.mu.Lock()
	if err := s.ensureLocked(ctx); err != nil {
		s.unlock()
		return nil, err
	}
	if s.inFlight {
		s.unlock()
		return nil, promptscore.ConcurrencyRejection("session.run_evaluation")
	}
	// Runs start from Test and complete into Results.
	m, err := s.machine.Request(promptscore.StepTest, s.progressLocked())
	if err != nil {
		s.unlock()
		return nil, err
	}
	s.setMachineLocked(m)
	key, err := s.vault.Reveal()
	if err != nil {
		s.unlock()
		return nil, err
	}
	params := promptscore.EvaluationParams{
		APIKey:       key,
		Model:        *s.current.Model,
		Instructions: s.current.Instructions,
		Prompt:       s.current.Prompt,
		Temperature:  s.current.Temperature,
		MaxTokens:    s.current.MaxTokens,
	}
	if s.current.EvaluationModel != nil {
		params.EvaluationModel = *s.current.EvaluationModel
	}
	s.inFlight = true
	gen := s.generation
	id := s.id
	s.current.ClearResult()
	s.current.Status = promptscore.StatusRunning
	s.emitLocked(promptscore.Event{Type: promptscore.EventEvaluationStarted})
	s.unlock()

	log := clog.FromContext(ctx).With("session", id)
	run, runErr := s.evaluator.Run(clog.WithLogger(ctx, log), params)

	s.mu.Lock()
	defer s.unlock()
	if gen != s.generation {
		log.Warn("Discarding stale evaluation result")
		return nil, ErrStaleEvaluation
	}
	s.inFlight = false

	if runErr != nil {
		s.current.Status = promptscore.StatusFailed
		s.current.Error = runErr.Error()
		s.emitLocked(promptscore.Event{Type: promptscore.EventEvaluationFailed, Err: runErr})
		s.persistLocked(ctx)
		return nil, runErr
	}

	s.history = append(s.history, *run)
	s.current.Response = run.Response
	metrics := run.Metrics
	s.current.Metrics = &metrics
	s.current.TokenUsage = run.TokenUsage.Add(run.JudgeTokenUsage)
	s.current.ExecutionTime = time.Duration(run.ExecutionTimeMs+run.JudgeExecutionTimeMs) * time.Millisecond
	s.current.Cost = run.Cost
	s.current.RunID = run.ID
	s.current.Status = promptscore.StatusCompleted
	s.emitLocked(promptscore.Event{Type: promptscore.EventEvaluationCompleted, Run: run})
	if m, err := s.machine.CompleteEvaluation(s.progressLocked()); err == nil {
		s.setMachineLocked(m)
	}
	s.persistLocked(ctx)

	out := *run
	return &out, nil
}

// ResetCurrentTest clears the current test and returns to Setup. History
// and the credential are kept. An evaluation still in flight is abandoned.
func (s *Store) ResetCurrentTest(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	s.current = promptscore.CurrentTest{}
	s.inFlight = false
	s.generation++
	s.setMachineLocked(s.machine.Reset())
	s.emitLocked(promptscore.Event{Type: promptscore.EventSessionReset})
	s.persistLocked(ctx)
	return nil
}

// ClearHistory drops every recorded run. The current test is kept.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	s.history = nil
	s.emitLocked(promptscore.Event{Type: promptscore.EventHistoryCleared})
	s.reconcileLocked()
	s.persistLocked(ctx)
	return nil
}

// Teardown ends the session, wiping the credential and all state.
func (s *Store) Teardown(ctx context.Context) {
	s.mu.Lock()
	defer s.unlock()
	s.teardownLocked(ctx)
}

// mutate applies fn to a live session, then re-validates the wizard step
// and persists.
func (s *Store) mutate(ctx context.Context, fn func()) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.ensureLocked(ctx); err != nil {
		return err
	}
	fn()
	s.reconcileLocked()
	s.persistLocked(ctx)
	return nil
}

// ensureLocked enforces expiry and lazily starts a session.
func (s *Store) ensureLocked(ctx context.Context) error {
	if s.id != "" && !s.now().Before(s.createdAt.Add(s.ttl)) {
		clog.FromContext(ctx).Info("Session expired", "session", s.id)
		s.teardownLocked(ctx)
		return ErrSessionExpired
	}
	if s.id == "" {
		s.id = s.newID()
		s.createdAt = s.now()
		s.armTimerLocked(ctx)
		s.emitLocked(promptscore.Event{Type: promptscore.EventSessionStarted})
		clog.FromContext(ctx).Info("Session started", "session", s.id, "ttl", s.ttl)
	}
	return nil
}

// armTimerLocked schedules teardown at the end of the session's lifetime.
func (s *Store) armTimerLocked(ctx context.Context) {
	if s.timer != nil {
		s.timer.Stop()
	}
	id := s.id
	remaining := s.createdAt.Add(s.ttl).Sub(s.now())
	logger := clog.FromContext(ctx)
	s.timer = time.AfterFunc(remaining, func() {
		s.mu.Lock()
		defer s.unlock()
		if s.id != id {
			return
		}
		ctx := clog.WithLogger(context.WithoutCancel(ctx), logger)
		clog.FromContext(ctx).Info("Session expired", "session", id)
		s.teardownLocked(ctx)
	})
}

func (s *Store) teardownLocked(ctx context.Context) {
	if s.id == "" {
		return
	}
	id := s.id
	if s.storage != nil {
		if err := s.storage.Delete(ctx, id); err != nil {
			clog.FromContext(ctx).Warn("Failed to delete session snapshot", "session", id, "error", err)
		}
	}
	s.emitLocked(promptscore.Event{Type: promptscore.EventSessionTornDown})
	s.resetLocked()
}

// resetLocked returns every field to its zero state and invalidates any
// evaluation in flight.
func (s *Store) resetLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.vault.Clear()
	s.id = ""
	s.createdAt = time.Time{}
	s.credentialValid = false
	s.current = promptscore.CurrentTest{}
	s.history = nil
	s.machine = promptscore.NewMachine()
	s.inFlight = false
	s.generation++
}

func (s *Store) progressLocked() promptscore.Progress {
	return promptscore.Progress{
		CredentialValid: s.credentialValid,
		ModelSelected:   s.current.Model != nil,
		Instructions:    s.current.Instructions,
		HasResponse:     s.current.Response != "",
		HasMetrics:      s.current.Metrics != nil,
		HistoryLen:      len(s.history),
	}
}

func (s *Store) reconcileLocked() {
	s.setMachineLocked(s.machine.Reconcile(s.progressLocked()))
}

func (s *Store) setMachineLocked(m promptscore.Machine) {
	if m.Current() == s.machine.Current() {
		s.machine = m
		return
	}
	s.machine = m
	s.emitLocked(promptscore.Event{Type: promptscore.EventStepChanged})
}

// emitLocked queues e for delivery once the lock is released.
func (s *Store) emitLocked(e promptscore.Event) {
	if s.bus == nil {
		return
	}
	if e.SessionID == "" {
		e.SessionID = s.id
	}
	e.Step = s.machine.Current()
	e.Timestamp = s.now().UTC()
	s.pending = append(s.pending, e)
}

// unlock releases the lock and then delivers queued events, so subscribers
// may call back into the Store.
func (s *Store) unlock() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, e := range events {
		s.bus.Publish(e)
	}
}

func cloneTest(t promptscore.CurrentTest) promptscore.CurrentTest {
	if t.Model != nil {
		m := *t.Model
		t.Model = &m
	}
	if t.EvaluationModel != nil {
		m := *t.EvaluationModel
		t.EvaluationModel = &m
	}
	if t.Temperature != nil {
		v := *t.Temperature
		t.Temperature = &v
	}
	if t.MaxTokens != nil {
		v := *t.MaxTokens
		t.MaxTokens = &v
	}
	if t.Metrics != nil {
		m := *t.Metrics
		t.Metrics = &m
	}
	return t
}

func cloneRuns(runs []promptscore.TestRun) []promptscore.TestRun {
	if len(runs) == 0 {
		return nil
	}
	out := make([]promptscore.TestRun, len(runs))
	copy(out, runs)
	return out
}
