// Package bubbletea provides the terminal results viewer and progress
// spinner using the Bubble Tea framework.
package bubbletea

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.ResultsViewer = (*Viewer)(nil)

// Viewer implements promptscore.ResultsViewer using a Bubble Tea TUI.
type Viewer struct {
	opts        []ResultsOption
	programOpts []tea.ProgramOption
}

// NewViewer creates a new Viewer. Options apply to every results model it
// shows.
func NewViewer(opts ...ResultsOption) *Viewer {
	return &Viewer{opts: opts}
}

// WithProgramOptions sets extra Bubble Tea program options.
func (v *Viewer) WithProgramOptions(opts ...tea.ProgramOption) *Viewer {
	v.programOpts = opts
	return v
}

// ShowResults displays runs and blocks until the user picks an action.
func (v *Viewer) ShowResults(ctx context.Context, runs []promptscore.TestRun) (promptscore.ResultsAction, error) {
	m := NewResultsModel(runs, v.opts...)
	opts := append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}, v.programOpts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return promptscore.ResultsQuit, err
	}
	rm, ok := final.(ResultsModel)
	if !ok {
		return promptscore.ResultsQuit, fmt.Errorf("bubbletea: unexpected model %T", final)
	}
	return rm.Action(), nil
}
