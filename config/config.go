// Package config loads promptscore settings from PROMPTSCORE_* environment
// variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "PROMPTSCORE_"

// Supported providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderAnthropic  = "anthropic"
)

// Providers lists the supported providers.
var Providers = []string{ProviderOpenRouter, ProviderGemini, ProviderAnthropic}

// Config holds settings fixed for the lifetime of a session.
type Config struct {
	Provider string `env:"PROVIDER,default=openrouter"`
	APIKey   string `env:"API_KEY"`
	BaseURL  string `env:"BASE_URL"`

	SessionTTL      time.Duration `env:"SESSION_TTL,default=1h"`
	MaxStorageBytes int           `env:"MAX_STORAGE_BYTES,default=5242880"`

	CallTimeout time.Duration `env:"CALL_TIMEOUT,default=30s"`
	MaxRetries  int           `env:"MAX_RETRIES,default=2"`
	JudgeModel  string        `env:"JUDGE_MODEL"`

	CatalogFile string        `env:"CATALOG_FILE"`
	CacheDir    string        `env:"CACHE_DIR"`
	CatalogTTL  time.Duration `env:"CATALOG_TTL,default=24h"`

	HistoryFile string `env:"HISTORY_FILE"` // JSONL log of completed runs, off when empty
	MetricsFile string `env:"METRICS_FILE"` // Prometheus text dump written on exit, off when empty
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration through lookuper. Names are looked up
// with the PROMPTSCORE_ prefix.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, lookuper),
	}); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Providers, c.Provider) {
		errs = append(errs, fmt.Errorf("%sPROVIDER must be one of %v, got %q", Prefix, Providers, c.Provider))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sSESSION_TTL must be positive", Prefix))
	}
	if c.MaxStorageBytes <= 0 {
		errs = append(errs, fmt.Errorf("%sMAX_STORAGE_BYTES must be positive", Prefix))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sCALL_TIMEOUT must be positive", Prefix))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%sMAX_RETRIES cannot be negative", Prefix))
	}
	if c.CatalogTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sCATALOG_TTL must be positive", Prefix))
	}
	return errors.Join(errs...)
}

// DefaultJudgeModel returns the judge model used when none is configured.
func (c *Config) DefaultJudgeModel() string {
	if c.JudgeModel != "" {
		return c.JudgeModel
	}
	switch c.Provider {
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	default:
		return "openai/gpt-4o-mini"
	}
}
