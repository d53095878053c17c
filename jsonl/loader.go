// Package jsonl reads and writes test runs as JSON Lines.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/promptscore"
)

// maxLineSize is the maximum size for a single JSONL line (4MB).
// This accommodates long responses while preventing memory issues.
const maxLineSize = 4 * 1024 * 1024

// Read decodes one TestRun per non-blank line of r.
func Read(r io.Reader) ([]promptscore.TestRun, error) {
	var runs []promptscore.TestRun
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var run promptscore.TestRun
		if err := json.Unmarshal([]byte(line), &run); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		runs = append(runs, run)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// write encodes each run on its own line.
func write(w io.Writer, runs []promptscore.TestRun) error {
	for _, run := range runs {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
