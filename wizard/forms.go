package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fwojciec/promptscore"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels a form.
var ErrAborted = errors.New("wizard aborted")

// SetupInput is what the setup form starts from.
type SetupInput struct {
	NeedKey    bool
	KeyPrefix  string
	Models     []promptscore.Model
	Model      string
	JudgeModel string
}

// SetupAnswers are the choices made on the setup form.
type SetupAnswers struct {
	APIKey     string
	Model      string
	JudgeModel string // empty to judge with the model under test
}

// TestInput is what the test form starts from.
type TestInput struct {
	Model       string
	Prompt      string
	Temperature *float64
	MaxTokens   *int
}

// TestAnswers are the choices made on the test form.
type TestAnswers struct {
	Prompt      string
	Temperature *float64
	MaxTokens   *int
	Back        bool // return to the instructions step instead of running
}

// Forms collects user input for the wizard steps.
type Forms interface {
	Setup(ctx context.Context, in SetupInput) (SetupAnswers, error)
	Instructions(ctx context.Context, current string) (string, error)
	Test(ctx context.Context, in TestInput) (TestAnswers, error)
}

// Compile-time interface verification.
var _ Forms = (*HuhForms)(nil)

// HuhForms implements Forms with huh. Non-terminal input switches the
// forms to accessible mode.
type HuhForms struct {
	in         io.Reader
	out        io.Writer
	accessible bool
	theme      *huh.Theme
}

// NewHuhForms creates forms reading from in and writing to out.
func NewHuhForms(in io.Reader, out io.Writer) *HuhForms {
	f := &HuhForms{in: in, out: out, theme: huh.ThemeCatppuccin()}
	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if file, ok := in.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		f.accessible = true
	}
	return f
}

// Accessible reports whether forms run in accessible mode.
func (f *HuhForms) Accessible() bool {
	return f.accessible
}

func (f *HuhForms) run(ctx context.Context, groups ...*huh.Group) error {
	form := huh.NewForm(groups...).
		WithInput(f.in).
		WithOutput(f.out).
		WithTheme(f.theme).
		WithAccessible(f.accessible)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("form failed: %w", err)
	}
	return nil
}

// Setup asks for the API key when needed, the model under test and the
// judge model.
func (f *HuhForms) Setup(ctx context.Context, in SetupInput) (SetupAnswers, error) {
	ans := SetupAnswers{Model: in.Model, JudgeModel: in.JudgeModel}

	var fields []huh.Field
	if in.NeedKey {
		fields = append(fields, huh.NewInput().
			Title("API key").
			Description("Stored encrypted for this session only").
			Placeholder(in.KeyPrefix+"...").
			EchoMode(huh.EchoModePassword).
			Value(&ans.APIKey).
			Validate(func(s string) error {
				return promptscore.ValidateAPIKey(strings.TrimSpace(s), in.KeyPrefix)
			}))
	}

	models := make([]huh.Option[string], 0, len(in.Models))
	for _, m := range in.Models {
		models = append(models, huh.NewOption(ModelLabel(m), m.ID))
	}
	judges := append([]huh.Option[string]{huh.NewOption("Same as model under test", "")}, models...)

	fields = append(fields,
		huh.NewSelect[string]().
			Title("Model under test").
			Options(models...).
			Filtering(true).
			Height(12).
			Value(&ans.Model).
			Validate(func(s string) error {
				if s == "" {
					return promptscore.ValidationError{Field: "model", Reason: promptscore.ErrEmpty}
				}
				return nil
			}),
		huh.NewSelect[string]().
			Title("Judge model").
			Description("Scores the response").
			Options(judges...).
			Filtering(true).
			Height(12).
			Value(&ans.JudgeModel),
	)

	if err := f.run(ctx, huh.NewGroup(fields...)); err != nil {
		return SetupAnswers{}, err
	}
	ans.APIKey = strings.TrimSpace(ans.APIKey)
	return ans, nil
}

// Instructions asks for the system instruction.
func (f *HuhForms) Instructions(ctx context.Context, current string) (string, error) {
	text := current
	err := f.run(ctx, huh.NewGroup(
		huh.NewText().
			Title("System instructions").
			Description(fmt.Sprintf("At least %d characters", promptscore.MinInstructionsLength)).
			CharLimit(promptscore.MaxInstructionsLength).
			Lines(10).
			Value(&text).
			Validate(promptscore.ValidateInstructions),
	))
	if err != nil {
		return "", err
	}
	return text, nil
}

// Test asks for the prompt and run options and whether to run.
func (f *HuhForms) Test(ctx context.Context, in TestInput) (TestAnswers, error) {
	prompt := in.Prompt
	temperature := formatOptionalFloat(in.Temperature)
	maxTokens := formatOptionalInt(in.MaxTokens)
	run := true

	err := f.run(ctx, huh.NewGroup(
		huh.NewText().
			Title("Prompt").
			Description("Sent to "+in.Model).
			Lines(6).
			Value(&prompt).
			Validate(promptscore.ValidatePrompt),
		huh.NewInput().
			Title("Temperature").
			Description("0 to 2, blank for the provider default").
			Value(&temperature).
			Validate(func(s string) error {
				t, err := ParseTemperature(s)
				if err != nil {
					return err
				}
				return promptscore.ValidateTemperature(t)
			}),
		huh.NewInput().
			Title("Max tokens").
			Description("Blank for the provider default").
			Value(&maxTokens).
			Validate(func(s string) error {
				n, err := ParseMaxTokens(s)
				if err != nil {
					return err
				}
				return promptscore.ValidateMaxTokens(n)
			}),
		huh.NewConfirm().
			Title("Run the test?").
			Affirmative("Run").
			Negative("Edit instructions").
			Value(&run),
	))
	if err != nil {
		return TestAnswers{}, err
	}

	t, _ := ParseTemperature(temperature)
	n, _ := ParseMaxTokens(maxTokens)
	return TestAnswers{Prompt: prompt, Temperature: t, MaxTokens: n, Back: !run}, nil
}

// ModelLabel formats a model for a picker: name, provider and price per
// million tokens when known.
func ModelLabel(m promptscore.Model) string {
	label := m.DisplayName()
	if m.Provider != "" {
		label += " (" + m.Provider + ")"
	}
	p := m.Pricing
	if p.PromptPerToken > 0 || p.CompletionPerToken > 0 {
		label += fmt.Sprintf("  $%.2f/$%.2f per 1M", p.PromptPerToken*1e6, p.CompletionPerToken*1e6)
	}
	return label
}

// ParseTemperature parses an optional temperature. Blank means unset.
func ParseTemperature(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("temperature must be a number")
	}
	return &v, nil
}

// ParseMaxTokens parses an optional token limit. Blank means unset.
func ParseMaxTokens(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("max tokens must be a whole number")
	}
	return &v, nil
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
