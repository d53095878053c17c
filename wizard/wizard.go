// Package wizard drives a session through setup, instructions, test and
// results with interactive forms.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/session"
)

// errQuit ends the wizard loop without an error.
var errQuit = errors.New("quit")

// Wizard walks the user through the test steps of one session.
type Wizard struct {
	store   *session.Store
	catalog promptscore.ModelCatalog
	forms   Forms
	viewer  promptscore.ResultsViewer
	spinner promptscore.Spinner
	out     io.Writer

	apiKey     string
	keyPrefix  string
	judgeModel string
	models     []promptscore.Model
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithAPIKey tries key before asking for one.
func WithAPIKey(key string) Option {
	return func(w *Wizard) { w.apiKey = key }
}

// WithKeyPrefix sets the provider key prefix shown in the key prompt.
func WithKeyPrefix(prefix string) Option {
	return func(w *Wizard) { w.keyPrefix = prefix }
}

// WithJudgeModel preselects the judge model.
func WithJudgeModel(id string) Option {
	return func(w *Wizard) { w.judgeModel = id }
}

// WithOutput sets where messages are written.
func WithOutput(out io.Writer) Option {
	return func(w *Wizard) { w.out = out }
}

// New creates a Wizard.
func New(store *session.Store, catalog promptscore.ModelCatalog, forms Forms, viewer promptscore.ResultsViewer, spinner promptscore.Spinner, opts ...Option) *Wizard {
	w := &Wizard{
		store:   store,
		catalog: catalog,
		forms:   forms,
		viewer:  viewer,
		spinner: spinner,
		out:     os.Stderr,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts a session and loops over the wizard steps until the user quits.
// The session is torn down on return.
func (w *Wizard) Run(ctx context.Context) error {
	if err := w.store.Initialize(ctx); err != nil {
		return err
	}
	defer w.store.Teardown(ctx)

	for {
		err := w.step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errQuit), errors.Is(err, ErrAborted):
			return nil
		case errors.Is(err, session.ErrSessionExpired):
			fmt.Fprintln(w.out, "Session expired. Starting a new one.")
			if err := w.store.Initialize(ctx); err != nil {
				return err
			}
		case errors.Is(err, session.ErrStaleEvaluation):
			clog.FromContext(ctx).Debug("Ignoring stale evaluation")
		default:
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (w *Wizard) step(ctx context.Context) error {
	v := w.store.View()
	clog.FromContext(ctx).Debug("Wizard step", "step", v.Step, "session", v.ID)
	fmt.Fprintln(w.out, Breadcrumb(v.Step, v.Progress))

	switch v.Step {
	case promptscore.StepSetup:
		return w.setup(ctx, v)
	case promptscore.StepInstructions:
		return w.instructions(ctx, v)
	case promptscore.StepTest:
		return w.test(ctx, v)
	case promptscore.StepResults:
		return w.results(ctx)
	default:
		return fmt.Errorf("unknown step %s", v.Step)
	}
}

func (w *Wizard) setup(ctx context.Context, v session.View) error {
	if len(w.models) == 0 {
		err := w.spinner.Spin(ctx, "Loading models...", func(ctx context.Context) error {
			models, err := w.catalog.Models(ctx)
			w.models = promptscore.SearchModels(models, "")
			return err
		})
		if err != nil {
			return fmt.Errorf("loading models: %w", err)
		}
	}

	needKey := !v.CredentialValid
	if needKey && w.apiKey != "" {
		key := w.apiKey
		w.apiKey = ""
		if err := w.verify(ctx, key); err != nil {
			if !recoverable(err) {
				return err
			}
			w.report(err)
		} else {
			needKey = false
		}
	}

	in := SetupInput{NeedKey: needKey, KeyPrefix: w.keyPrefix, Models: w.models, JudgeModel: w.judgeModel}
	if v.Current.Model != nil {
		in.Model = v.Current.Model.ID
	}
	if v.Current.EvaluationModel != nil {
		in.JudgeModel = v.Current.EvaluationModel.ID
	}
	ans, err := w.forms.Setup(ctx, in)
	if err != nil {
		return err
	}

	if needKey {
		if err := w.verify(ctx, ans.APIKey); err != nil {
			if !recoverable(err) {
				return err
			}
			w.report(err)
			return nil
		}
	}

	model, ok := promptscore.FindModel(w.models, ans.Model)
	if !ok {
		w.report(fmt.Errorf("unknown model %q", ans.Model))
		return nil
	}
	if err := w.store.Select(ctx, model); err != nil {
		return err
	}
	judge := promptscore.Model{}
	if ans.JudgeModel != "" {
		judge, ok = promptscore.FindModel(w.models, ans.JudgeModel)
		if !ok {
			judge = promptscore.Model{ID: ans.JudgeModel, Provider: promptscore.ProviderFromID(ans.JudgeModel)}
		}
	}
	if err := w.store.SetEvaluationModel(ctx, judge); err != nil {
		return err
	}
	return w.advance(ctx, promptscore.StepInstructions)
}

func (w *Wizard) verify(ctx context.Context, key string) error {
	return w.spinner.Spin(ctx, "Verifying API key...", func(ctx context.Context) error {
		return w.store.SetCredential(ctx, key)
	})
}

func (w *Wizard) instructions(ctx context.Context, v session.View) error {
	text, err := w.forms.Instructions(ctx, v.Current.Instructions)
	if err != nil {
		return err
	}
	if err := w.store.SetInstructions(ctx, text); err != nil {
		return err
	}
	return w.advance(ctx, promptscore.StepTest)
}

func (w *Wizard) test(ctx context.Context, v session.View) error {
	in := TestInput{
		Prompt:      v.Current.Prompt,
		Temperature: v.Current.Temperature,
		MaxTokens:   v.Current.MaxTokens,
	}
	if v.Current.Model != nil {
		in.Model = v.Current.Model.DisplayName()
	}
	ans, err := w.forms.Test(ctx, in)
	if err != nil {
		return err
	}
	if err := w.store.SetPrompt(ctx, ans.Prompt); err != nil {
		return err
	}
	if err := w.store.SetTemperature(ctx, ans.Temperature); err != nil {
		w.report(err)
		return nil
	}
	if err := w.store.SetMaxTokens(ctx, ans.MaxTokens); err != nil {
		w.report(err)
		return nil
	}
	if ans.Back {
		return w.advance(ctx, promptscore.StepInstructions)
	}
	return w.evaluate(ctx, in.Model)
}

// evaluate runs the current test. Failures the user can act on are
// reported and leave the wizard where it was.
func (w *Wizard) evaluate(ctx context.Context, model string) error {
	var run *promptscore.TestRun
	err := w.spinner.Spin(ctx, fmt.Sprintf("Testing %s...", model), func(ctx context.Context) error {
		var err error
		run, err = w.store.RunEvaluation(ctx)
		return err
	})
	if err != nil {
		if !recoverable(err) || ctx.Err() != nil {
			return err
		}
		w.report(err)
		return nil
	}
	if run.Metrics.ParseFailed {
		fmt.Fprintln(w.out, "The judge's verdict could not be parsed; scores are unavailable for this run.")
	}
	return nil
}

func (w *Wizard) results(ctx context.Context) error {
	action, err := w.viewer.ShowResults(ctx, w.store.History())
	if err != nil {
		return err
	}
	clog.FromContext(ctx).Debug("Results action", "action", action)

	switch action {
	case promptscore.ResultsRerun:
		v := w.store.View()
		model := ""
		if v.Current.Model != nil {
			model = v.Current.Model.DisplayName()
		}
		return w.evaluate(ctx, model)
	case promptscore.ResultsNewTest:
		return w.store.ResetCurrentTest(ctx)
	case promptscore.ResultsEdit:
		return w.advance(ctx, promptscore.StepInstructions)
	default:
		return errQuit
	}
}

// advance requests a step change, reporting a refusal instead of failing.
func (w *Wizard) advance(ctx context.Context, step promptscore.Step) error {
	err := w.store.RequestStep(ctx, step)
	var refusal *promptscore.Refusal
	if errors.As(err, &refusal) {
		w.report(refusal)
		return nil
	}
	return err
}

func (w *Wizard) report(err error) {
	fmt.Fprintf(w.out, "Error: %s\n", Message(err))
}

// recoverable reports whether the wizard can carry on after err.
func recoverable(err error) bool {
	if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, session.ErrStaleEvaluation) {
		return false
	}
	switch promptscore.ErrorKind(err) {
	case promptscore.KindCredential, promptscore.KindNetwork, promptscore.KindValidation, promptscore.KindConcurrency:
		return true
	}
	var refusal *promptscore.Refusal
	return errors.As(err, &refusal) || errors.Is(err, context.Canceled)
}

// Message turns an error into text for the user.
func Message(err error) string {
	switch promptscore.ErrorKind(err) {
	case promptscore.KindCredential:
		return "the API key was rejected. Check it and try again."
	case promptscore.KindNetwork:
		return "the provider could not be reached. Try again in a moment."
	case promptscore.KindConcurrency:
		return "a test is already running."
	}
	if errors.Is(err, context.Canceled) {
		return "test cancelled."
	}
	return err.Error()
}

// Breadcrumb renders the step trail. The current step is bracketed and
// steps that cannot be entered yet are shown in parentheses.
func Breadcrumb(current promptscore.Step, p promptscore.Progress) string {
	parts := make([]string, len(promptscore.Steps))
	for i, s := range promptscore.Steps {
		switch {
		case s == current:
			parts[i] = "[" + s.Title() + "]"
		case !p.Accessible(s):
			parts[i] = "(" + s.Title() + ")"
		default:
			parts[i] = s.Title()
		}
	}
	return strings.Join(parts, " > ")
}
