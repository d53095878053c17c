package promptscore

// Token represents a syntax-highlighted segment of code.
type Token struct {
	Text  string // The text content of this token
	Style Style  // Visual style to apply (colors, bold, etc.)
}

// Style represents the visual styling for a token.
type Style struct {
	Foreground string // Hex color code (e.g., "#ff0000") or empty for default
	Bold       bool   // Whether the text should be bold
}

// Tokenizer extracts syntax tokens from source code.
type Tokenizer interface {
	// TokenizeLines splits source into highlighted tokens grouped by line.
	// Returns nil if the language is not supported.
	TokenizeLines(language, source string) [][]Token
}

// LanguageDetector resolves the language of a fenced code block in a response.
type LanguageDetector interface {
	// DetectFromFence returns the canonical language name for a fence info
	// string such as "go", "py" or "typescript title=x.ts", falling back to
	// content analysis when the tag is empty. Returns "" when unknown.
	DetectFromFence(info, source string) string
}

// Segment represents a portion of text for word-level comparison.
type Segment struct {
	Text    string // The text content of this segment
	Changed bool   // True if this segment differs between old/new versions
}

// WordDiffer computes word-level differences between two strings.
type WordDiffer interface {
	// Diff returns segments for both the old and new strings,
	// marking which portions changed between them.
	Diff(old, new string) (oldSegs, newSegs []Segment)
}

// Block is a top-level piece of a response: prose, or the body of a fenced
// code block together with its info string.
type Block struct {
	Text string
	Code bool
	Info string
}

// BlockSplitter splits a markdown response into prose and code blocks.
// Code blocks carry their body without the fence lines.
type BlockSplitter interface {
	Split(markdown string) []Block
}
