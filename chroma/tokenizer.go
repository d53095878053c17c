// Package chroma provides syntax highlighting for code in model responses
// using the chroma library.
package chroma

import (
	"errors"
	"strings"

	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.Tokenizer = (*Tokenizer)(nil)

// StyleFunc maps chroma token types to token styles.
type StyleFunc func(chromalib.TokenType) promptscore.Style

// Tokenizer extracts syntax tokens using chroma.
type Tokenizer struct {
	styleFunc StyleFunc
}

// NewTokenizer creates a tokenizer with the given style function.
// Use StyleFromPalette to derive one from a theme.
func NewTokenizer(styleFunc StyleFunc) (*Tokenizer, error) {
	if styleFunc == nil {
		return nil, errors.New("chroma: styleFunc cannot be nil")
	}
	return &Tokenizer{styleFunc: styleFunc}, nil
}

// TokenizeLines lexes the whole block so multi-line constructs keep their
// context, then splits the tokens by line. Returns nil for an unsupported
// language and an empty slice for empty source.
func (t *Tokenizer) TokenizeLines(language, source string) [][]promptscore.Token {
	if source == "" {
		return [][]promptscore.Token{}
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	lexer = chromalib.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil
	}

	var lines [][]promptscore.Token
	var line []promptscore.Token
	for token := iterator(); token != chromalib.EOF; token = iterator() {
		style := t.styleFunc(token.Type)
		parts := strings.Split(token.Value, "\n")
		for i, part := range parts {
			if part != "" {
				line = append(line, promptscore.Token{Text: part, Style: style})
			}
			if i < len(parts)-1 {
				lines = append(lines, line)
				line = nil
			}
		}
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}
