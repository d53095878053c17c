package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/config"
	"github.com/fwojciec/promptscore/export"
	"github.com/fwojciec/promptscore/jsonl"
	"github.com/fwojciec/promptscore/session"
	"github.com/fwojciec/promptscore/wizard"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ErrNoAPIKey is returned by non-interactive commands when no key is configured.
var ErrNoAPIKey = errors.New("no API key: set " + config.Prefix + "API_KEY")

// ErrNoRuns is returned when there is nothing to show or export.
var ErrNoRuns = errors.New("no runs to show")

// App encapsulates the application logic for testing.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Config    *config.Config
	KeyPrefix string
	Store     *session.Store
	Catalog   promptscore.ModelCatalog
	Viewer    promptscore.ResultsViewer
	Spinner   promptscore.Spinner
	Forms     wizard.Forms
}

// RunOptions are the inputs of a non-interactive run.
type RunOptions struct {
	Models       []string
	JudgeModel   string
	Instructions string
	Prompt       string
	Temperature  *float64
	MaxTokens    *int
	Repeat       int
	Format       string
	View         bool
}

// RunTests evaluates the prompt against each model Repeat times, one run
// after another, and writes the history in the chosen format. Runs that
// completed are written even when a later one fails.
func (a *App) RunTests(ctx context.Context, opts RunOptions) error {
	exporter, err := export.New(opts.Format)
	if err != nil {
		return err
	}
	if len(opts.Models) == 0 {
		return errors.New("at least one --model is required")
	}
	if opts.Repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", opts.Repeat)
	}
	if a.Config.APIKey == "" {
		return ErrNoAPIKey
	}

	if err := a.Store.Initialize(ctx); err != nil {
		return err
	}
	defer a.Store.Teardown(ctx)

	if err := a.Spinner.Spin(ctx, "Verifying API key...", func(ctx context.Context) error {
		return a.Store.SetCredential(ctx, a.Config.APIKey)
	}); err != nil {
		return err
	}

	catalog, err := a.Catalog.Models(ctx)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	models := make([]promptscore.Model, 0, len(opts.Models))
	for _, id := range opts.Models {
		models = append(models, resolveModel(ctx, catalog, id))
	}

	judge := opts.JudgeModel
	if judge == "" {
		judge = a.Config.DefaultJudgeModel()
	}
	if err := a.Store.SetEvaluationModel(ctx, resolveModel(ctx, catalog, judge)); err != nil {
		return err
	}
	if err := a.Store.SetInstructions(ctx, opts.Instructions); err != nil {
		return err
	}
	if err := a.Store.SetPrompt(ctx, opts.Prompt); err != nil {
		return err
	}
	if err := a.Store.SetTemperature(ctx, opts.Temperature); err != nil {
		return err
	}
	if err := a.Store.SetMaxTokens(ctx, opts.MaxTokens); err != nil {
		return err
	}

	runErr := a.runAll(ctx, models, opts.Repeat)

	history := a.Store.History()
	if opts.View && len(history) > 0 {
		if _, err := a.Viewer.ShowResults(ctx, history); err != nil {
			return errors.Join(runErr, err)
		}
	} else if err := exporter.Export(a.Stdout, history); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) runAll(ctx context.Context, models []promptscore.Model, repeat int) error {
	for _, model := range models {
		if err := a.Store.Select(ctx, model); err != nil {
			return err
		}
		if err := a.Store.RequestStep(ctx, promptscore.StepTest); err != nil {
			return err
		}
		for i := range repeat {
			title := fmt.Sprintf("Testing %s (%d/%d)...", model.DisplayName(), i+1, repeat)
			if err := a.Spinner.Spin(ctx, title, func(ctx context.Context) error {
				_, err := a.Store.RunEvaluation(ctx)
				return err
			}); err != nil {
				return fmt.Errorf("%s run %d: %w", model.ID, i+1, err)
			}
		}
	}
	return nil
}

// resolveModel looks id up in the catalog. Unlisted models are used as
// given, without pricing.
func resolveModel(ctx context.Context, catalog []promptscore.Model, id string) promptscore.Model {
	if m, ok := promptscore.FindModel(catalog, id); ok {
		return m
	}
	clog.FromContext(ctx).Warn("Model not in catalog, cost will be reported as zero", "model", id)
	return promptscore.Model{ID: id, Provider: promptscore.ProviderFromID(id)}
}

// ListModels writes the catalog models matching query.
func (a *App) ListModels(ctx context.Context, query, format string) error {
	all, err := a.Catalog.Models(ctx)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	models := promptscore.SearchModels(all, query)

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(a.Stdout)
		enc.SetIndent("", "  ")
		if models == nil {
			models = []promptscore.Model{}
		}
		return enc.Encode(models)
	case "", "table":
	default:
		return fmt.Errorf("unsupported format %q: must be table or json", format)
	}

	if len(models) == 0 {
		_, err := fmt.Fprintf(a.Stdout, "No models match %q.\n", query)
		return err
	}
	table := tablewriter.NewTable(a.Stdout,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithHeader([]string{"ID", "Name", "Provider", "Context", "$/1M in", "$/1M out"}),
	)
	for _, m := range models {
		_ = table.Append([]string{
			m.ID,
			m.DisplayName(),
			m.Provider,
			formatContext(m.ContextLength),
			formatPrice(m.Pricing.PromptPerToken),
			formatPrice(m.Pricing.CompletionPerToken),
		})
	}
	return table.Render()
}

func formatContext(n int) string {
	if n <= 0 {
		return "-"
	}
	if n >= 1000 {
		return fmt.Sprintf("%dk", n/1000)
	}
	return fmt.Sprint(n)
}

func formatPrice(perToken float64) string {
	if perToken <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", perToken*1e6)
}

// RunWizard starts the interactive wizard.
func (a *App) RunWizard(ctx context.Context) error {
	w := wizard.New(a.Store, a.Catalog, a.Forms, a.Viewer, a.Spinner,
		wizard.WithAPIKey(a.Config.APIKey),
		wizard.WithKeyPrefix(a.KeyPrefix),
		wizard.WithJudgeModel(a.Config.DefaultJudgeModel()),
		wizard.WithOutput(a.Stderr),
	)
	return w.Run(ctx)
}

// ExportHistory converts a JSONL history file to format.
func (a *App) ExportHistory(path, format string) error {
	exporter, err := export.New(format)
	if err != nil {
		return err
	}
	runs, err := a.loadHistory(path)
	if err != nil {
		return err
	}
	return exporter.Export(a.Stdout, runs)
}

// ViewHistory opens the results viewer on a JSONL history file.
func (a *App) ViewHistory(ctx context.Context, path string) error {
	runs, err := a.loadHistory(path)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return ErrNoRuns
	}
	_, err = a.Viewer.ShowResults(ctx, runs)
	return err
}

// loadHistory reads a JSONL history file, or stdin when path is "-".
func (a *App) loadHistory(path string) ([]promptscore.TestRun, error) {
	if path == "-" {
		return jsonl.Read(a.Stdin)
	}
	return jsonl.NewStore().Load(path)
}
