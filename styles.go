package promptscore

// ColorPair represents a foreground and background color combination.
// Colors should be hex strings in "#RRGGBB" format (e.g., "#ff0000" for red).
// Empty strings are valid and indicate no color override (use terminal default).
type ColorPair struct {
	Foreground string
	Background string
}

// Styles contains color pairs for the visual elements of the results view.
type Styles struct {
	Title            ColorPair // Section titles
	Label            ColorPair // Field labels (model, tokens, cost)
	Muted            ColorPair // Secondary text and help
	ScoreHigh        ColorPair // Scores at or above ScoreHighThreshold
	ScoreMedium      ColorPair // Scores at or above ScoreMediumThreshold
	ScoreLow         ColorPair // Everything below
	CodeBlock        ColorPair // Fenced code inside a response
	Error            ColorPair // Failures and degraded verdicts
	AddedHighlight   ColorPair // Words only present in the newer response
	DeletedHighlight ColorPair // Words only present in the older response
}

// Score bands used to pick a score color.
const (
	ScoreHighThreshold   = 80.0
	ScoreMediumThreshold = 60.0
)

// ScoreStyle returns the color pair for a score.
func (s Styles) ScoreStyle(score float64) ColorPair {
	switch {
	case score >= ScoreHighThreshold:
		return s.ScoreHigh
	case score >= ScoreMediumThreshold:
		return s.ScoreMedium
	default:
		return s.ScoreLow
	}
}

// Color is a hex color string such as "#cdd6f4".
type Color string

// Palette holds the semantic colors a theme is built from. Syntax
// highlighting of code fences uses it directly.
type Palette struct {
	Background Color
	Foreground Color

	Good    Color
	Warning Color
	Bad     Color
	Muted   Color

	Keyword     Color
	String      Color
	Number      Color
	Comment     Color
	Operator    Color
	Function    Color
	Type        Color
	Constant    Color
	Punctuation Color

	UIBackground Color
	UIForeground Color
	UIAccent     Color
}

// Theme provides styles for rendering results.
// Different implementations can provide light/dark variants.
type Theme interface {
	Styles() Styles
	Palette() Palette
}
