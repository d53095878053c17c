package fs

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/fwojciec/promptscore"
	"gopkg.in/yaml.v3"
)

// Compile-time interface verification.
var _ promptscore.ModelCatalog = (*StaticCatalog)(nil)

//go:embed models.yaml
var embeddedCatalog []byte

// catalogFile is the YAML layout of a static catalog.
type catalogFile struct {
	Models []promptscore.Model `yaml:"models"`
}

// StaticCatalog serves a fixed model list, for providers without a listing
// endpoint that reports prices.
type StaticCatalog struct {
	models []promptscore.Model
}

// EmbeddedCatalog returns the catalog shipped with the binary, filtered to
// provider. An empty provider keeps every model.
func EmbeddedCatalog(provider string) (*StaticCatalog, error) {
	return parseCatalog(embeddedCatalog, provider)
}

// LoadCatalogFile reads a YAML catalog from path, filtered to provider.
func LoadCatalogFile(path, provider string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := parseCatalog(data, provider)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parseCatalog(data []byte, provider string) (*StaticCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	models := make([]promptscore.Model, 0, len(f.Models))
	for i, m := range f.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("parse catalog: model %d has no id", i)
		}
		if m.Provider == "" {
			m.Provider = promptscore.ProviderFromID(m.ID)
		}
		if provider != "" && m.Provider != provider {
			continue
		}
		models = append(models, m)
	}
	return &StaticCatalog{models: models}, nil
}

// Models returns a copy of the catalog.
func (c *StaticCatalog) Models(context.Context) ([]promptscore.Model, error) {
	out := make([]promptscore.Model, len(c.models))
	copy(out, c.models)
	return out, nil
}
