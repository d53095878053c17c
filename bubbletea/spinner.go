package bubbletea

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.Spinner = (*Spinner)(nil)

// Spinner implements promptscore.Spinner. In accessible mode it prints the
// title once instead of animating.
type Spinner struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

// SpinnerOption configures a Spinner.
type SpinnerOption func(*Spinner)

// WithAccessible disables the animation.
func WithAccessible(accessible bool) SpinnerOption {
	return func(s *Spinner) { s.accessible = accessible }
}

// WithIO sets the terminal streams.
func WithIO(in io.Reader, out io.Writer) SpinnerOption {
	return func(s *Spinner) {
		s.in = in
		s.out = out
	}
}

// NewSpinner creates a Spinner on stdin and stderr.
func NewSpinner(opts ...SpinnerOption) *Spinner {
	s := &Spinner{in: os.Stdin, out: os.Stderr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spin runs fn, animating until it returns. Ctrl+C cancels the context
// passed to fn and waits for it to return.
func (s *Spinner) Spin(ctx context.Context, title string, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.accessible {
		fmt.Fprintln(s.out, title)
		return fn(ctx)
	}

	m := NewSpinnerModel(title, func() error { return fn(ctx) }, cancel)
	final, err := tea.NewProgram(m, tea.WithInput(s.in), tea.WithOutput(s.out)).Run()
	if err != nil {
		return err
	}
	return final.(SpinnerModel).Err()
}

// SpinnerModel shows a spinner with elapsed time while work runs.
type SpinnerModel struct {
	spinner    spinner.Model
	title      string
	work       func() error
	cancel     func()
	started    time.Time
	elapsed    time.Duration
	cancelling bool
	done       bool
	err        error
	interrupt  key.Binding
}

// workDoneMsg carries the result of the work function.
type workDoneMsg struct{ err error }

// NewSpinnerModel creates a model that runs work on Init. cancel is called
// when the user interrupts.
func NewSpinnerModel(title string, work func() error, cancel func()) SpinnerModel {
	return SpinnerModel{
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		title:     title,
		work:      work,
		cancel:    cancel,
		started:   time.Now(),
		interrupt: key.NewBinding(key.WithKeys("ctrl+c", "esc")),
	}
}

// Err returns the error of the work function once it finished.
func (m SpinnerModel) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m SpinnerModel) Init() tea.Cmd {
	work := m.work
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return workDoneMsg{err: work()}
	})
}

// Update implements tea.Model.
func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.interrupt) && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case spinner.TickMsg:
		m.elapsed = time.Since(m.started).Truncate(time.Second)
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m SpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.cancelling {
		return fmt.Sprintf("%s Cancelling...\n", m.spinner.View())
	}
	return fmt.Sprintf("%s %s %s\n", m.spinner.View(), m.title, m.elapsed)
}
