package export

import (
	"io"

	"github.com/fwojciec/promptscore"
	"gopkg.in/yaml.v3"
)

// YAML writes runs as a YAML document with a top-level runs list.
type YAML struct{}

type yamlDocument struct {
	Runs []promptscore.TestRun `yaml:"runs"`
}

// Export implements promptscore.Exporter.
func (YAML) Export(w io.Writer, runs []promptscore.TestRun) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{Runs: runs}); err != nil {
		return err
	}
	return enc.Close()
}
