package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/fwojciec/promptscore"
)

// Saver appends TestRun records to a JSONL file.
type Saver struct {
	path string
	mu   sync.Mutex
}

// NewSaver creates a Saver writing to path.
func NewSaver(path string) *Saver {
	return &Saver{path: path}
}

// Append adds run to the file, creating parent directories if needed.
func (s *Saver) Append(run promptscore.TestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := write(f, []promptscore.TestRun{run}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Attach appends every completed run published on bus. The returned
// function detaches the saver.
func (s *Saver) Attach(ctx context.Context, bus *promptscore.Bus) (detach func()) {
	return bus.Subscribe(func(e promptscore.Event) {
		if e.Type != promptscore.EventEvaluationCompleted || e.Run == nil {
			return
		}
		if err := s.Append(*e.Run); err != nil {
			clog.FromContext(ctx).Warn("Failed to append run to history log", "path", s.path, "run", e.Run.ID, "error", err)
		}
	})
}
