package chroma_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/chroma"
	"github.com/fwojciec/promptscore/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenizer(t *testing.T) *chroma.Tokenizer {
	t.Helper()

	tokenizer, err := chroma.NewTokenizer(chroma.StyleFromPalette(lipgloss.DarkTheme().Palette()))
	require.NoError(t, err)
	return tokenizer
}

func joinLine(tokens []promptscore.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok.Text)
	}
	return b.String()
}

func TestNewTokenizer(t *testing.T) {
	t.Parallel()

	_, err := chroma.NewTokenizer(nil)

	require.Error(t, err)
}

func TestTokenizer_TokenizeLines(t *testing.T) {
	t.Parallel()

	t.Run("splits tokens by line and preserves text", func(t *testing.T) {
		t.Parallel()

		source := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}"
		lines := newTokenizer(t).TokenizeLines("go", source)

		require.Len(t, lines, 5)
		assert.Equal(t, "package main", joinLine(lines[0]))
		assert.Empty(t, lines[1])
		assert.Equal(t, "\tprintln(\"hi\")", joinLine(lines[3]))
	})

	t.Run("styles keywords", func(t *testing.T) {
		t.Parallel()

		lines := newTokenizer(t).TokenizeLines("go", "package main")

		require.Len(t, lines, 1)
		var found bool
		for _, tok := range lines[0] {
			if tok.Text == "package" {
				found = true
				assert.NotEmpty(t, tok.Style.Foreground)
				assert.True(t, tok.Style.Bold)
			}
		}
		assert.True(t, found, "should find 'package' keyword token")
	})

	t.Run("keeps multi-line comment context", func(t *testing.T) {
		t.Parallel()

		lines := newTokenizer(t).TokenizeLines("go", "/* first\nsecond */\nx := 1")

		require.Len(t, lines, 3)
		require.NotEmpty(t, lines[1])
		comment := lipgloss.DarkTheme().Palette().Comment
		assert.Equal(t, string(comment), lines[1][0].Style.Foreground, "second line is still inside the comment")
	})

	t.Run("differentiates function names from builtins", func(t *testing.T) {
		t.Parallel()

		lines := newTokenizer(t).TokenizeLines("go", "func foo() { println() }")

		require.Len(t, lines, 1)
		var fooStyle, printlnStyle promptscore.Style
		for _, tok := range lines[0] {
			switch tok.Text {
			case "foo":
				fooStyle = tok.Style
			case "println":
				printlnStyle = tok.Style
			}
		}
		assert.NotEmpty(t, fooStyle.Foreground)
		assert.NotEmpty(t, printlnStyle.Foreground)
		assert.NotEqual(t, fooStyle.Foreground, printlnStyle.Foreground)
	})

	t.Run("returns nil for unsupported language", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, newTokenizer(t).TokenizeLines("nonexistent-language-xyz", "code"))
	})

	t.Run("handles empty source", func(t *testing.T) {
		t.Parallel()

		lines := newTokenizer(t).TokenizeLines("go", "")

		assert.NotNil(t, lines)
		assert.Empty(t, lines)
	})
}
