package bubbletea

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/promptscore"
)

// ResultsModel is the Bubble Tea model for reviewing test runs.
type ResultsModel struct {
	// Data
	runs    []promptscore.TestRun
	index   int
	compare bool

	// UI Components
	viewport viewport.Model
	help     help.Model

	// State
	ready  bool
	status string
	action promptscore.ResultsAction

	// Rendering
	width, height int
	theme         promptscore.Theme
	renderer      *lipgloss.Renderer
	splitter      promptscore.BlockSplitter
	detector      promptscore.LanguageDetector
	tokenizer     promptscore.Tokenizer
	wordDiffer    promptscore.WordDiffer

	clipboard promptscore.Clipboard
	keymap    KeyMap
}

// ResultsOption configures a ResultsModel.
type ResultsOption func(*ResultsModel)

// WithTheme sets the color theme.
func WithTheme(theme promptscore.Theme) ResultsOption {
	return func(m *ResultsModel) { m.theme = theme }
}

// WithRenderer sets the lipgloss renderer, mainly so tests can force a
// color profile.
func WithRenderer(r *lipgloss.Renderer) ResultsOption {
	return func(m *ResultsModel) { m.renderer = r }
}

// WithBlockSplitter enables separate rendering of code blocks.
func WithBlockSplitter(s promptscore.BlockSplitter) ResultsOption {
	return func(m *ResultsModel) { m.splitter = s }
}

// WithSyntaxHighlighting enables highlighting of code blocks.
func WithSyntaxHighlighting(detector promptscore.LanguageDetector, tokenizer promptscore.Tokenizer) ResultsOption {
	return func(m *ResultsModel) {
		m.detector = detector
		m.tokenizer = tokenizer
	}
}

// WithWordDiffer enables comparison with the previous run.
func WithWordDiffer(d promptscore.WordDiffer) ResultsOption {
	return func(m *ResultsModel) { m.wordDiffer = d }
}

// WithClipboard enables copying the response.
func WithClipboard(c promptscore.Clipboard) ResultsOption {
	return func(m *ResultsModel) { m.clipboard = c }
}

// WithKeyMap replaces the default key bindings.
func WithKeyMap(km KeyMap) ResultsOption {
	return func(m *ResultsModel) { m.keymap = km }
}

// NewResultsModel creates a model showing the newest of runs.
func NewResultsModel(runs []promptscore.TestRun, opts ...ResultsOption) ResultsModel {
	m := ResultsModel{
		runs:   runs,
		index:  len(runs) - 1,
		help:   help.New(),
		keymap: DefaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Action returns what the user chose when the program exited.
func (m ResultsModel) Action() promptscore.ResultsAction {
	return m.action
}

// Init implements tea.Model.
func (m ResultsModel) Init() tea.Cmd {
	return nil
}

// copiedMsg reports the outcome of a clipboard copy.
type copiedMsg struct{ err error }

// Update implements tea.Model.
func (m ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case copiedMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Response copied"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ResultsModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.action = promptscore.ResultsQuit
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Rerun):
		m.action = promptscore.ResultsRerun
		return m, tea.Quit

	case key.Matches(msg, m.keymap.NewTest):
		m.action = promptscore.ResultsNewTest
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Edit):
		m.action = promptscore.ResultsEdit
		return m, tea.Quit

	case key.Matches(msg, m.keymap.NextRun):
		if m.index < len(m.runs)-1 {
			m.index++
			m.updateViewportContent()
		}
		return m, nil

	case key.Matches(msg, m.keymap.PrevRun):
		if m.index > 0 {
			m.index--
			m.updateViewportContent()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Compare):
		switch {
		case m.wordDiffer == nil:
			m.status = "Comparison unavailable"
		case m.index < 1:
			m.status = "No previous run to compare with"
		default:
			m.compare = !m.compare
			m.updateViewportContent()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Copy):
		if m.clipboard == nil || len(m.runs) == 0 {
			m.status = "Clipboard unavailable"
			return m, nil
		}
		cb, text := m.clipboard, m.runs[m.index].Response
		return m, func() tea.Msg { return copiedMsg{err: cb.Copy(text)} }

	case key.Matches(msg, m.keymap.HalfPageUp):
		m.viewport.HalfPageUp()
		return m, nil

	case key.Matches(msg, m.keymap.HalfPageDown):
		m.viewport.HalfPageDown()
		return m, nil

	case key.Matches(msg, m.keymap.GotoTop):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keymap.GotoBottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keymap.ShowHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ResultsModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.help.Width = msg.Width

	if !m.ready {
		m.viewport = viewport.New(msg.Width, 1)
		m.ready = true
	}
	m.resizeViewport()
	m.updateViewportContent()
	return m, nil
}

// resizeViewport gives the viewport everything but the header and footer.
func (m *ResultsModel) resizeViewport() {
	footer := lipgloss.Height(m.renderFooter())
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-1-footer, 1)
}

func (m *ResultsModel) updateViewportContent() {
	if len(m.runs) == 0 {
		m.viewport.SetContent("No runs yet.")
		return
	}
	cfg := renderConfig{
		run:        m.runs[m.index],
		styles:     m.styles(),
		renderer:   m.renderer,
		width:      m.width,
		splitter:   m.splitter,
		detector:   m.detector,
		tokenizer:  m.tokenizer,
		wordDiffer: m.wordDiffer,
	}
	if m.compare && m.index > 0 {
		cfg.previous = &m.runs[m.index-1]
	}
	m.viewport.SetContent(renderRun(cfg))
	m.viewport.GotoTop()
}

func (m ResultsModel) styles() promptscore.Styles {
	if m.theme == nil {
		return promptscore.Styles{}
	}
	return m.theme.Styles()
}

// View implements tea.Model.
func (m ResultsModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m ResultsModel) renderHeader() string {
	style := styleFromColorPair(m.styles().Title, m.renderer).Bold(true)
	header := "RESULTS"
	if len(m.runs) > 0 {
		header = fmt.Sprintf("RESULTS  run %d/%d", m.index+1, len(m.runs))
	}
	if m.compare {
		header += "  [compare]"
	}
	header = style.Render(header)
	if m.status != "" {
		header += "  " + styleFromColorPair(m.styles().Muted, m.renderer).Render(m.status)
	}
	return header
}

func (m ResultsModel) renderFooter() string {
	return m.help.View(m.keymap)
}
