// Package lipgloss provides theme implementations using the Lipgloss styling library.
package lipgloss

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.Theme = (*Theme)(nil)

// Theme implements promptscore.Theme with Lipgloss-compatible colors.
type Theme struct {
	styles  promptscore.Styles
	palette promptscore.Palette
}

// Styles returns the color styles for this theme.
func (t *Theme) Styles() promptscore.Styles {
	return t.styles
}

// Palette returns the semantic color palette for this theme.
func (t *Theme) Palette() promptscore.Palette {
	return t.palette
}

// DefaultTheme returns the default theme (dark background optimized).
func DefaultTheme() *Theme {
	return DarkTheme()
}

// DetectTheme picks the light or dark theme from the terminal background.
func DetectTheme() *Theme {
	return ThemeFor(lipgloss.HasDarkBackground())
}

// ThemeFor returns DarkTheme when dark is true and LightTheme otherwise.
func ThemeFor(dark bool) *Theme {
	if dark {
		return DarkTheme()
	}
	return LightTheme()
}

// DarkTheme returns a theme optimized for dark terminal backgrounds.
func DarkTheme() *Theme {
	p := promptscore.Palette{
		// Catppuccin Mocha
		Background: "#1e1e2e",
		Foreground: "#cdd6f4",

		Good:    "#a6e3a1",
		Warning: "#f9e2af",
		Bad:     "#f38ba8",
		Muted:   "#6c7086",

		Keyword:     "#cba6f7",
		String:      "#a6e3a1",
		Number:      "#fab387",
		Comment:     "#6c7086",
		Operator:    "#89dceb",
		Function:    "#89b4fa",
		Type:        "#f9e2af",
		Constant:    "#fab387",
		Punctuation: "#9399b2",

		UIBackground: "#313244",
		UIForeground: "#a6adc8",
		UIAccent:     "#89b4fa",
	}
	return &Theme{
		styles: promptscore.Styles{
			Title:       promptscore.ColorPair{Foreground: string(p.UIAccent)},
			Label:       promptscore.ColorPair{Foreground: string(p.UIForeground)},
			Muted:       promptscore.ColorPair{Foreground: string(p.Muted)},
			ScoreHigh:   promptscore.ColorPair{Foreground: string(p.Good)},
			ScoreMedium: promptscore.ColorPair{Foreground: string(p.Warning)},
			ScoreLow:    promptscore.ColorPair{Foreground: string(p.Bad)},
			CodeBlock:   promptscore.ColorPair{Background: "#181825"},
			Error:       promptscore.ColorPair{Foreground: string(p.Bad)},
			AddedHighlight: promptscore.ColorPair{
				Foreground: "#1e1e2e", // dark text on bright background
				Background: "#a6e3a1",
			},
			DeletedHighlight: promptscore.ColorPair{
				Foreground: "#1e1e2e",
				Background: "#f38ba8",
			},
		},
		palette: p,
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds.
func LightTheme() *Theme {
	p := promptscore.Palette{
		// Catppuccin Latte
		Background: "#eff1f5",
		Foreground: "#4c4f69",

		Good:    "#40a02b",
		Warning: "#df8e1d",
		Bad:     "#d20f39",
		Muted:   "#9ca0b0",

		Keyword:     "#8839ef",
		String:      "#40a02b",
		Number:      "#fe640b",
		Comment:     "#9ca0b0",
		Operator:    "#04a5e5",
		Function:    "#1e66f5",
		Type:        "#df8e1d",
		Constant:    "#fe640b",
		Punctuation: "#6c6f85",

		UIBackground: "#e6e9ef",
		UIForeground: "#6c6f85",
		UIAccent:     "#1e66f5",
	}
	return &Theme{
		styles: promptscore.Styles{
			Title:       promptscore.ColorPair{Foreground: string(p.UIAccent)},
			Label:       promptscore.ColorPair{Foreground: string(p.UIForeground)},
			Muted:       promptscore.ColorPair{Foreground: string(p.Muted)},
			ScoreHigh:   promptscore.ColorPair{Foreground: string(p.Good)},
			ScoreMedium: promptscore.ColorPair{Foreground: string(p.Warning)},
			ScoreLow:    promptscore.ColorPair{Foreground: string(p.Bad)},
			CodeBlock:   promptscore.ColorPair{Background: "#e6e9ef"},
			Error:       promptscore.ColorPair{Foreground: string(p.Bad)},
			AddedHighlight: promptscore.ColorPair{
				Foreground: "#ffffff", // white text on dark background
				Background: "#40a02b",
			},
			DeletedHighlight: promptscore.ColorPair{
				Foreground: "#ffffff",
				Background: "#d20f39",
			},
		},
		palette: p,
	}
}
