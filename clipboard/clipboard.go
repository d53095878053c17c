// Package clipboard copies text to the system clipboard.
package clipboard

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/muesli/termenv"
)

// Compile-time interface verification.
var _ promptscore.Clipboard = (*System)(nil)

// DefaultCommands are tried in order; the first one found on PATH wins.
var DefaultCommands = [][]string{
	{"pbcopy"},
	{"wl-copy"},
	{"xclip", "-selection", "clipboard"},
	{"xsel", "--clipboard", "--input"},
	{"clip.exe"},
}

// ErrUnavailable is returned when no clipboard command exists and no
// terminal fallback is configured.
var ErrUnavailable = errors.New("clipboard: no clipboard command available")

// System copies through a platform clipboard command and falls back to an
// OSC 52 escape sequence on the terminal, which also works over SSH.
type System struct {
	commands [][]string
	lookPath func(string) (string, error)
	terminal io.Writer
}

// Option configures a System.
type Option func(*System)

// WithCommands replaces the candidate commands.
func WithCommands(commands ...[]string) Option {
	return func(s *System) { s.commands = commands }
}

// WithTerminal sets the writer receiving the OSC 52 fallback; nil disables it.
func WithTerminal(w io.Writer) Option {
	return func(s *System) { s.terminal = w }
}

// WithLookPath overrides command discovery.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(s *System) { s.lookPath = fn }
}

// New returns a System clipboard using DefaultCommands and stderr as the
// terminal fallback.
func New(opts ...Option) *System {
	s := &System{
		commands: DefaultCommands,
		lookPath: exec.LookPath,
		terminal: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Copy writes content to the clipboard.
func (s *System) Copy(content string) error {
	for _, argv := range s.commands {
		path, err := s.lookPath(argv[0])
		if err != nil {
			continue
		}
		cmd := exec.Command(path, argv[1:]...)
		cmd.Stdin = strings.NewReader(content)
		return cmd.Run()
	}
	if s.terminal == nil {
		return ErrUnavailable
	}
	termenv.NewOutput(s.terminal).Copy(content)
	return nil
}
