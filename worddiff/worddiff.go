// Package worddiff compares two model responses word by word.
package worddiff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var _ promptscore.WordDiffer = (*Differ)(nil)

const (
	// similarityThreshold is the minimum share of common words for a
	// word-level diff. Below it the responses are shown as replacements.
	similarityThreshold = 0.4

	// maxCells bounds the LCS table of the differing middle section.
	maxCells = 4_000_000
)

// Differ computes word-level diffs of prose.
type Differ struct{}

// NewDiffer creates a new Differ instance.
func NewDiffer() *Differ {
	return &Differ{}
}

// Tokenize splits prose into words, whitespace runs and single symbols.
// Apostrophes and hyphens inside a word ("don't", "step-by-step") keep it
// whole.
func (d *Differ) Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, len(s)/4+1)
	for i := 0; i < len(s); {
		start := i
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case isWord(r):
			for i < len(s) {
				r, size := utf8.DecodeRuneInString(s[i:])
				if isWord(r) {
					i += size
					continue
				}
				if isJoiner(r) && i+size < len(s) {
					next, _ := utf8.DecodeRuneInString(s[i+size:])
					if isWord(next) {
						i += size
						continue
					}
				}
				break
			}
		case unicode.IsSpace(r):
			for i < len(s) {
				r, size := utf8.DecodeRuneInString(s[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
		}
		tokens = append(tokens, s[start:i])
	}
	return tokens
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

// Diff returns segments for both strings, marking the words that differ.
func (d *Differ) Diff(old, new string) (oldSegs, newSegs []promptscore.Segment) {
	switch {
	case old == "" && new == "":
		return nil, nil
	case old == "":
		return nil, []promptscore.Segment{{Text: new, Changed: true}}
	case new == "":
		return []promptscore.Segment{{Text: old, Changed: true}}, nil
	case old == new:
		seg := promptscore.Segment{Text: old}
		return []promptscore.Segment{seg}, []promptscore.Segment{seg}
	}

	a, b := d.Tokenize(old), d.Tokenize(new)
	if !similarEnough(a, b) {
		return []promptscore.Segment{{Text: old, Changed: true}},
			[]promptscore.Segment{{Text: new, Changed: true}}
	}

	// Common prefix and suffix are matched directly so only the differing
	// middle goes through the quadratic alignment.
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	var ob, nb segmentBuilder
	for _, tok := range a[:prefix] {
		ob.add(tok, false)
		nb.add(tok, false)
	}
	alignMiddle(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix], &ob, &nb)
	for _, tok := range a[len(a)-suffix:] {
		ob.add(tok, false)
		nb.add(tok, false)
	}
	return ob.segments(), nb.segments()
}

// similarEnough reports whether the multiset overlap of the two token
// sequences reaches similarityThreshold.
func similarEnough(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	common := 0
	for _, t := range b {
		if counts[t] > 0 {
			counts[t]--
			common++
		}
	}
	return float64(2*common)/float64(len(a)+len(b)) >= similarityThreshold
}

// alignMiddle marks the longest common subsequence of a and b unchanged and
// everything else changed. Sections too large to align are marked changed
// wholesale.
func alignMiddle(a, b []string, ob, nb *segmentBuilder) {
	m, n := len(a), len(b)
	if m == 0 || n == 0 || m*n > maxCells {
		for _, tok := range a {
			ob.add(tok, true)
		}
		for _, tok := range b {
			nb.add(tok, true)
		}
		return
	}

	stride := n + 1
	table := make([]int32, (m+1)*stride)
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				table[i*stride+j] = table[(i+1)*stride+j+1] + 1
			case table[(i+1)*stride+j] >= table[i*stride+j+1]:
				table[i*stride+j] = table[(i+1)*stride+j]
			default:
				table[i*stride+j] = table[i*stride+j+1]
			}
		}
	}

	// Walk forward from the suffix table so matches come out in order.
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			ob.add(a[i], false)
			nb.add(b[j], false)
			i++
			j++
		case table[(i+1)*stride+j] >= table[i*stride+j+1]:
			ob.add(a[i], true)
			i++
		default:
			nb.add(b[j], true)
			j++
		}
	}
	for ; i < m; i++ {
		ob.add(a[i], true)
	}
	for ; j < n; j++ {
		nb.add(b[j], true)
	}
}

// segmentBuilder merges consecutive tokens with the same status.
type segmentBuilder struct {
	segs    []promptscore.Segment
	text    strings.Builder
	changed bool
	open    bool
}

func (s *segmentBuilder) add(tok string, changed bool) {
	if s.open && s.changed != changed {
		s.flush()
	}
	s.text.WriteString(tok)
	s.changed = changed
	s.open = true
}

func (s *segmentBuilder) flush() {
	if !s.open {
		return
	}
	s.segs = append(s.segs, promptscore.Segment{Text: s.text.String(), Changed: s.changed})
	s.text.Reset()
	s.open = false
}

func (s *segmentBuilder) segments() []promptscore.Segment {
	s.flush()
	return s.segs
}
