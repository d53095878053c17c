package export

import (
	"encoding/json"
	"io"

	"github.com/fwojciec/promptscore"
)

// JSON writes runs as a single JSON array.
type JSON struct {
	Indent bool
}

// Export implements promptscore.Exporter.
func (j JSON) Export(w io.Writer, runs []promptscore.TestRun) error {
	if runs == nil {
		runs = []promptscore.TestRun{}
	}
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(runs)
}
