// Package export writes test runs in human and machine readable formats.
package export

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/jsonl"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported formats.
const (
	FormatJSON     = "json"
	FormatJSONL    = "jsonl"
	FormatCSV      = "csv"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatYAML     = "yaml"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// printer formats token counts and costs with digit grouping.
var printer = message.NewPrinter(language.English)

// Formats lists every supported format name.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatJSONL, FormatCSV, FormatMarkdown, FormatHTML, FormatYAML}
}

// New returns the exporter for format. Names are case-insensitive; "md"
// and "yml" are accepted as aliases.
func New(format string) (promptscore.Exporter, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return JSON{Indent: true}, nil
	case FormatJSONL:
		return jsonl.Exporter{}, nil
	case FormatCSV:
		return CSV{}, nil
	case FormatText, "":
		return Text{}, nil
	case FormatMarkdown, "md":
		return Markdown{}, nil
	case FormatHTML:
		return HTML{}, nil
	case FormatYAML, "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// IsFormat reports whether name is a supported format.
func IsFormat(name string) bool {
	_, err := New(name)
	return err == nil && name != ""
}

// Summary aggregates a set of runs.
type Summary struct {
	Runs        int
	MeanScore   float64
	BestScore   float64
	TotalTokens int
	TotalCost   float64
	Degraded    int
}

// Summarize aggregates runs. Degraded runs count toward tokens and cost but
// not toward the score statistics.
func Summarize(runs []promptscore.TestRun) Summary {
	s := Summary{Runs: len(runs)}
	scored := 0
	for _, r := range runs {
		s.TotalTokens += r.TokenUsage.TotalTokens + r.JudgeTokenUsage.TotalTokens
		s.TotalCost += r.Cost
		if r.Metrics.ParseFailed {
			s.Degraded++
			continue
		}
		scored++
		s.MeanScore += r.Metrics.OverallScore
		s.BestScore = max(s.BestScore, r.Metrics.OverallScore)
	}
	if scored > 0 {
		s.MeanScore /= float64(scored)
	}
	return s
}

// formatScore renders a score, or "n/a" when the verdict was unparseable.
func formatScore(m promptscore.SuccessMetrics, v float64) string {
	if m.ParseFailed {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", v)
}

func formatCost(c float64) string {
	return printer.Sprintf("$%.4f", c)
}

func formatTokens(n int) string {
	return printer.Sprintf("%d", n)
}

// shortID keeps the first segment of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// sortedByTime returns runs ordered oldest first without touching the input.
func sortedByTime(runs []promptscore.TestRun) []promptscore.TestRun {
	out := slices.Clone(runs)
	slices.SortStableFunc(out, func(a, b promptscore.TestRun) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}
