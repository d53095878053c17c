package bubbletea

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the results viewer.
type KeyMap struct {
	// Navigation between runs
	NextRun key.Binding
	PrevRun key.Binding

	// Scrolling
	HalfPageUp   key.Binding
	HalfPageDown key.Binding
	GotoTop      key.Binding
	GotoBottom   key.Binding

	// Actions
	Compare  key.Binding
	Copy     key.Binding
	Rerun    key.Binding
	NewTest  key.Binding
	Edit     key.Binding
	Quit     key.Binding
	ShowHelp key.Binding
}

// DefaultKeyMap returns the default vim-style key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextRun: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n", "newer run"),
		),
		PrevRun: key.NewBinding(
			key.WithKeys("N", "left"),
			key.WithHelp("N", "older run"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "half page down"),
		),
		GotoTop: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "go to top"),
		),
		GotoBottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "go to bottom"),
		),
		Compare: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "compare with previous"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy response"),
		),
		Rerun: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run again"),
		),
		NewTest: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "new test"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit instructions"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ShowHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextRun, k.PrevRun, k.Compare, k.Copy, k.Rerun, k.NewTest, k.Quit, k.ShowHelp}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextRun, k.PrevRun, k.HalfPageUp, k.HalfPageDown, k.GotoTop, k.GotoBottom},
		{k.Compare, k.Copy, k.Rerun, k.NewTest, k.Edit, k.Quit},
	}
}
