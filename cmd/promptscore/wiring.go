package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/bubbletea"
	"github.com/fwojciec/promptscore/chroma"
	"github.com/fwojciec/promptscore/claude"
	"github.com/fwojciec/promptscore/clipboard"
	"github.com/fwojciec/promptscore/config"
	"github.com/fwojciec/promptscore/eval"
	"github.com/fwojciec/promptscore/fs"
	"github.com/fwojciec/promptscore/gemini"
	"github.com/fwojciec/promptscore/goldmark"
	"github.com/fwojciec/promptscore/jsonl"
	"github.com/fwojciec/promptscore/jsonschema"
	"github.com/fwojciec/promptscore/lipgloss"
	"github.com/fwojciec/promptscore/openrouter"
	"github.com/fwojciec/promptscore/otel"
	promrecorder "github.com/fwojciec/promptscore/prometheus"
	"github.com/fwojciec/promptscore/session"
	"github.com/fwojciec/promptscore/wizard"
	"github.com/fwojciec/promptscore/worddiff"
	"github.com/fwojciec/promptscore/xchacha"
	"github.com/fwojciec/promptscore/zstd"
	"github.com/prometheus/client_golang/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/term"
)

// provider bundles the adapters of one model provider.
type provider struct {
	chat      promptscore.ChatClient
	verifier  promptscore.KeyVerifier
	catalog   promptscore.ModelCatalog
	keyPrefix string
}

// newProvider builds the adapters for cfg.Provider. Providers without a
// priced listing endpoint use the embedded catalog unless a catalog file is
// configured.
func newProvider(cfg *config.Config) (*provider, error) {
	var p provider
	var catalogProvider string
	switch cfg.Provider {
	case config.ProviderGemini:
		gp := gemini.NewProvider(gemini.Factory(gemini.ClientConfig{BaseURL: cfg.BaseURL}))
		p = provider{chat: gp, verifier: gp, keyPrefix: gemini.KeyPrefix}
		catalogProvider = "google"
	case config.ProviderAnthropic:
		c := claude.NewClient(claude.Config{BaseURL: cfg.BaseURL})
		p = provider{chat: c, verifier: c, keyPrefix: claude.KeyPrefix}
		catalogProvider = "anthropic"
	default:
		c := openrouter.NewClient(openrouter.Config{BaseURL: cfg.BaseURL, AppName: "promptscore"})
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = fs.DefaultCacheDir()
		}
		p = provider{
			chat:      c,
			verifier:  c,
			catalog:   fs.NewCatalog(c, cacheDir, "openrouter-models", fs.WithTTL(cfg.CatalogTTL)),
			keyPrefix: openrouter.KeyPrefix,
		}
	}

	switch {
	case cfg.CatalogFile != "":
		c, err := fs.LoadCatalogFile(cfg.CatalogFile, catalogProvider)
		if err != nil {
			return nil, err
		}
		p.catalog = c
	case p.catalog == nil:
		c, err := fs.EmbeddedCatalog(catalogProvider)
		if err != nil {
			return nil, err
		}
		p.catalog = c
	}
	return &p, nil
}

// buildApp wires the production dependencies. The returned cleanup flushes
// metrics and releases resources.
func buildApp(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) (*App, func(), error) {
	p, err := newProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	parser, err := jsonschema.NewParser()
	if err != nil {
		return nil, nil, fmt.Errorf("verdict schema: %w", err)
	}

	tel, err := newTelemetry(ctx)
	if err != nil {
		return nil, nil, err
	}

	retry := eval.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	engine := eval.NewEngine(p.chat, parser,
		eval.WithRecorder(tel.recorders),
		eval.WithRetryConfig(retry),
		eval.WithCallTimeout(cfg.CallTimeout),
	)

	cipher, err := xchacha.NewEphemeral()
	if err != nil {
		return nil, nil, err
	}
	storage, err := zstd.NewStorage(cfg.MaxStorageBytes)
	if err != nil {
		return nil, nil, err
	}

	bus := promptscore.NewBus()
	detach := func() {}
	if cfg.HistoryFile != "" {
		detach = jsonl.NewSaver(cfg.HistoryFile).Attach(ctx, bus)
	}

	store := session.NewStore(engine, p.verifier, cipher,
		session.WithStorage(storage),
		session.WithBus(bus),
		session.WithTTL(cfg.SessionTTL),
		session.WithKeyPrefix(p.keyPrefix),
	)

	theme := lipgloss.DetectTheme()
	viewerOpts := []bubbletea.ResultsOption{
		bubbletea.WithTheme(theme),
		bubbletea.WithBlockSplitter(goldmark.NewSplitter()),
		bubbletea.WithWordDiffer(worddiff.NewDiffer()),
		bubbletea.WithClipboard(clipboard.New(clipboard.WithTerminal(stderr))),
	}
	if tok, err := chroma.NewTokenizer(chroma.StyleFromPalette(theme.Palette())); err == nil {
		viewerOpts = append(viewerOpts, bubbletea.WithSyntaxHighlighting(chroma.NewDetector(), tok))
	} else {
		clog.FromContext(ctx).Warn("Syntax highlighting disabled", "error", err)
	}

	app := &App{
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		Config:    cfg,
		KeyPrefix: p.keyPrefix,
		Store:     store,
		Catalog:   p.catalog,
		Viewer:    bubbletea.NewViewer(viewerOpts...),
		Spinner:   bubbletea.NewSpinner(bubbletea.WithIO(stdin, stderr), bubbletea.WithAccessible(!isTerminal(stderr))),
		Forms:     wizard.NewHuhForms(stdin, stderr),
	}

	cleanup := func() {
		detach()
		if err := storage.Close(); err != nil {
			clog.FromContext(ctx).Warn("Failed to close session storage", "error", err)
		}
		tel.close(ctx, cfg.MetricsFile)
	}
	return app, cleanup, nil
}

// telemetry feeds both recorders into one Prometheus registry: the native
// promptscore_* series and the OpenTelemetry instruments under the otel_
// prefix.
type telemetry struct {
	registry  *prometheus.Registry
	provider  *sdkmetric.MeterProvider
	recorders promptscore.Recorders
}

func newTelemetry(ctx context.Context) (*telemetry, error) {
	registry := prometheus.NewRegistry()
	mp, err := otel.NewPrometheusMeterProvider(registry)
	if err != nil {
		return nil, err
	}
	return &telemetry{
		registry: registry,
		provider: mp,
		recorders: promptscore.Recorders{
			promrecorder.NewRecorder(registry),
			otel.NewRecorder(ctx, mp),
		},
	}, nil
}

// close writes the registry to path, when set, and shuts the meter
// provider down. The write comes first since a stopped provider no longer
// reports.
func (t *telemetry) close(ctx context.Context, path string) {
	log := clog.FromContext(ctx)
	if path != "" {
		if err := prometheus.WriteToTextfile(path, t.registry); err != nil {
			log.Warn("Failed to write metrics", "path", path, "error", err)
		}
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		log.Warn("Failed to shut down meter provider", "error", err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
