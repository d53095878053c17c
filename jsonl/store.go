package jsonl

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.Exporter = (*Exporter)(nil)

// Store persists and retrieves TestRun history as JSONL files.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Load reads runs from a JSONL file. Returns empty slice if file doesn't exist.
func (s *Store) Load(path string) ([]promptscore.TestRun, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Save writes runs to a JSONL file, creating parent directories if needed.
func (s *Store) Save(path string, runs []promptscore.TestRun) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, runs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Exporter implements promptscore.Exporter for the JSONL format.
type Exporter struct{}

// Export writes one run per line.
func (Exporter) Export(w io.Writer, runs []promptscore.TestRun) error {
	return write(w, runs)
}
