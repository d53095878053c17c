package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore/config"
	"github.com/fwojciec/promptscore/export"
	"github.com/spf13/cobra"
)

var version = "dev"

// AppFactory builds the App for a command once configuration is loaded.
type AppFactory func(ctx context.Context, cfg *config.Config) (*App, func(), error)

// LoadConfig reads the configuration for a command.
type LoadConfig func(ctx context.Context) (*config.Config, error)

func newRootCommand(load LoadConfig, factory AppFactory, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptscore",
		Short: "Test a system instruction and prompt against a model and score the answer",
		Long: `promptscore sends a system instruction and prompt to a language model and
asks a second model to judge the response for coherence, task completion,
instruction adherence and efficiency.

Run without a command to start the interactive wizard.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// The app is built per command so that --help never needs a valid
	// configuration.
	withApp := func(fn func(ctx context.Context, app *App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if *debugLogging {
				level = slog.LevelDebug
			}
			logger := clog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			ctx := clog.WithLogger(cmd.Context(), logger)

			cfg, err := load(ctx)
			if err != nil {
				return err
			}
			app, cleanup, err := factory(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return fn(ctx, app)
		}
	}

	cmd.RunE = withApp(func(ctx context.Context, app *App) error {
		return app.RunWizard(ctx)
	})

	cmd.AddCommand(newWizardCommand(withApp))
	cmd.AddCommand(newRunCommand(withApp))
	cmd.AddCommand(newModelsCommand(withApp))
	cmd.AddCommand(newExportCommand(withApp))
	cmd.AddCommand(newViewCommand(withApp))
	return cmd
}

type appRunner func(fn func(ctx context.Context, app *App) error) func(*cobra.Command, []string) error

func newWizardCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Walk through setup, instructions, test and results interactively",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, app *App) error {
			return app.RunWizard(ctx)
		}),
	}
}

func newRunCommand(withApp appRunner) *cobra.Command {
	var (
		opts             RunOptions
		instructionsFile string
		promptFile       string
		temperature      float64
		maxTokens        int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a test without the wizard and print the results",
		Long: `Run evaluates the prompt against each model, --repeat times per model, one
run after another. The API key is read from ` + config.Prefix + `API_KEY.

Instructions and prompt come from flags or files ("-" reads stdin).`,
		Example: `  promptscore run -m openai/gpt-4o-mini -i "You are a terse assistant." -p "Capital of France?"
  promptscore run -m openai/gpt-4o-mini -m anthropic/claude-3.5-haiku --instructions-file sys.txt --prompt-file q.txt --repeat 3 -f md`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		flags := c.Flags()
		if flags.Changed("temperature") {
			opts.Temperature = &temperature
		}
		if flags.Changed("max-tokens") {
			opts.MaxTokens = &maxTokens
		}
		var err error
		if opts.Instructions, err = readInput(c.InOrStdin(), opts.Instructions, instructionsFile); err != nil {
			return err
		}
		if opts.Prompt, err = readInput(c.InOrStdin(), opts.Prompt, promptFile); err != nil {
			return err
		}
		return withApp(func(ctx context.Context, app *App) error {
			return app.RunTests(ctx, opts)
		})(c, args)
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.Models, "model", "m", nil, "Model to test (repeatable)")
	f.StringVarP(&opts.JudgeModel, "judge", "j", "", "Judge model (default "+config.Prefix+"JUDGE_MODEL or the provider default)")
	f.StringVarP(&opts.Instructions, "instructions", "i", "", "System instructions")
	f.StringVar(&instructionsFile, "instructions-file", "", "Read system instructions from file")
	f.StringVarP(&opts.Prompt, "prompt", "p", "", "User prompt")
	f.StringVar(&promptFile, "prompt-file", "", "Read the user prompt from file")
	f.Float64VarP(&temperature, "temperature", "t", 0, "Sampling temperature (0-2)")
	f.IntVar(&maxTokens, "max-tokens", 0, "Response token limit")
	f.IntVarP(&opts.Repeat, "repeat", "n", 1, "Runs per model")
	f.StringVarP(&opts.Format, "format", "f", export.FormatText, "Output format: "+strings.Join(export.Formats(), ", "))
	f.BoolVar(&opts.View, "view", false, "Open the results viewer instead of printing")
	cmd.MarkFlagsMutuallyExclusive("instructions", "instructions-file")
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
	return cmd
}

// readInput returns the flag value or the contents of file.
func readInput(stdin io.Reader, value, file string) (string, error) {
	switch file {
	case "":
		return value, nil
	case "-":
		data, err := io.ReadAll(stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	}
}

func newModelsCommand(withApp appRunner) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "models [query]",
		Short: "List the models of the configured provider",
		Long:  "List the models of the configured provider. A query filters by id, name or provider, ignoring case.",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(func(ctx context.Context, app *App) error {
			return app.ListModels(ctx, query, format)
		})(c, args)
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}

func newExportCommand(withApp appRunner) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <history.jsonl>",
		Short: "Convert a saved run history to another format",
		Long:  "Convert a JSONL run history, as written to " + config.Prefix + "HISTORY_FILE, to another format. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withApp(func(_ context.Context, app *App) error {
			return app.ExportHistory(args[0], format)
		})(c, args)
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatMarkdown, "Output format: "+strings.Join(export.Formats(), ", "))
	return cmd
}

func newViewCommand(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <history.jsonl>",
		Short: "Browse a saved run history in the results viewer",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *App) error {
			return app.ViewHistory(ctx, args[0])
		})(c, args)
	}
	return cmd
}
