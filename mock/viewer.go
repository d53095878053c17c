package mock

import (
	"context"
	"io"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var (
	_ promptscore.Clipboard  = (*Clipboard)(nil)
	_ promptscore.Exporter   = (*Exporter)(nil)
	_ promptscore.WordDiffer = (*WordDiffer)(nil)

	_ promptscore.ResultsViewer = (*ResultsViewer)(nil)
	_ promptscore.Spinner       = (*Spinner)(nil)
)

// Clipboard is a mock implementation of promptscore.Clipboard.
type Clipboard struct {
	CopyFn func(content string) error
}

func (c *Clipboard) Copy(content string) error {
	return c.CopyFn(content)
}

// Exporter is a mock implementation of promptscore.Exporter.
type Exporter struct {
	ExportFn func(w io.Writer, runs []promptscore.TestRun) error
}

func (e *Exporter) Export(w io.Writer, runs []promptscore.TestRun) error {
	return e.ExportFn(w, runs)
}

// WordDiffer is a mock implementation of promptscore.WordDiffer.
type WordDiffer struct {
	DiffFn func(old, new string) (oldSegs, newSegs []promptscore.Segment)
}

func (d *WordDiffer) Diff(old, new string) (oldSegs, newSegs []promptscore.Segment) {
	return d.DiffFn(old, new)
}

// ResultsViewer is a mock implementation of promptscore.ResultsViewer.
type ResultsViewer struct {
	ShowResultsFn func(ctx context.Context, runs []promptscore.TestRun) (promptscore.ResultsAction, error)
}

func (v *ResultsViewer) ShowResults(ctx context.Context, runs []promptscore.TestRun) (promptscore.ResultsAction, error) {
	return v.ShowResultsFn(ctx, runs)
}

// Spinner is a mock implementation of promptscore.Spinner that runs fn
// directly when SpinFn is nil.
type Spinner struct {
	SpinFn func(ctx context.Context, title string, fn func(context.Context) error) error
}

func (s *Spinner) Spin(ctx context.Context, title string, fn func(context.Context) error) error {
	if s.SpinFn == nil {
		return fn(ctx)
	}
	return s.SpinFn(ctx, title, fn)
}
