package chroma

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.LanguageDetector = (*Detector)(nil)

// Detector resolves code fence languages using chroma's lexer registry.
type Detector struct{}

// NewDetector creates a new chroma-based language detector.
func NewDetector() *Detector {
	return &Detector{}
}

// DetectFromFence returns the lexer name for the first word of the fence
// info string, accepting aliases and file extensions ("py", "main.go"). With
// no usable tag the source is analysed instead.
func (d *Detector) DetectFromFence(info, source string) string {
	if fields := strings.Fields(info); len(fields) > 0 {
		tag := strings.ToLower(strings.Trim(fields[0], "{}."))
		if lexer := lexers.Get(tag); lexer != nil {
			return lexer.Config().Name
		}
		if lexer := lexers.Match("file." + tag); lexer != nil {
			return lexer.Config().Name
		}
	}
	if strings.TrimSpace(source) == "" {
		return ""
	}
	lexer := lexers.Analyse(source)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}
