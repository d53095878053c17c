// Package jsonschema parses judge verdicts, validating them against a JSON
// schema reflected from promptscore.Verdict.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/go-viper/mapstructure/v2"
	invopop "github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
)

// Compile-time interface verification.
var _ promptscore.VerdictParser = (*Parser)(nil)

const schemaURL = "verdict.json"

// Parser implements promptscore.VerdictParser.
type Parser struct {
	schema *santhosh.Schema
	doc    map[string]any
}

// NewParser reflects the verdict schema and compiles it for validation.
func NewParser() (*Parser, error) {
	r := invopop.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	data, err := json.Marshal(r.Reflect(&promptscore.Verdict{}))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: marshal verdict schema: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: decode verdict schema: %w", err)
	}

	resource, err := santhosh.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: read verdict schema: %w", err)
	}
	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource(schemaURL, resource); err != nil {
		return nil, fmt.Errorf("jsonschema: add verdict schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: compile verdict schema: %w", err)
	}

	return &Parser{schema: schema, doc: doc}, nil
}

// Schema returns the verdict schema as a JSON document.
func (p *Parser) Schema() map[string]any {
	return p.doc
}

// Parse extracts the first JSON object from text, validates it and decodes
// it into a Verdict. Scores outside 0-100 are accepted here and clamped
// when metrics are built.
func (p *Parser) Parse(text string) promptscore.VerdictResult {
	raw := ExtractObject(text)
	if raw == "" {
		return promptscore.FailedVerdict(text, "no JSON object found")
	}

	value, err := santhosh.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return promptscore.FailedVerdict(text, fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := p.schema.Validate(value); err != nil {
		return promptscore.FailedVerdict(text, validationSummary(err))
	}

	var v promptscore.Verdict
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &v,
	})
	if err != nil {
		return promptscore.FailedVerdict(text, err.Error())
	}
	if err := decoder.Decode(value); err != nil {
		return promptscore.FailedVerdict(text, fmt.Sprintf("decode: %v", err))
	}

	v.Explanation = strings.TrimSpace(v.Explanation)
	return promptscore.ParsedVerdict(v)
}

// validationSummary flattens a schema validation error to a single line.
func validationSummary(err error) string {
	msg := err.Error()
	var ve *santhosh.ValidationError
	if errors.As(err, &ve) {
		var causes []string
		for _, c := range leafCauses(ve) {
			causes = append(causes, c.Error())
		}
		if len(causes) > 0 {
			msg = strings.Join(causes, "; ")
		}
	}
	return "schema: " + strings.Join(strings.Fields(msg), " ")
}

func leafCauses(ve *santhosh.ValidationError) []*santhosh.ValidationError {
	if len(ve.Causes) == 0 {
		return []*santhosh.ValidationError{ve}
	}
	var out []*santhosh.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}

// ExtractObject returns the first balanced JSON object in text, skipping
// markdown fences and surrounding prose. Returns "" when there is none.
func ExtractObject(text string) string {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text[start:]); end > 0 {
			return text[start : start+end]
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}

// matchBrace returns the length of the object starting at s[0], or 0 if it
// is never closed. Braces inside strings are ignored.
func matchBrace(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
