package promptscore

import "context"

// ResultsAction is what the user chose after reviewing results.
type ResultsAction int

// Results actions.
const (
	ResultsQuit ResultsAction = iota
	ResultsRerun
	ResultsNewTest
	ResultsEdit
)

func (a ResultsAction) String() string {
	switch a {
	case ResultsRerun:
		return "rerun"
	case ResultsNewTest:
		return "new test"
	case ResultsEdit:
		return "edit"
	default:
		return "quit"
	}
}

// ResultsViewer displays test runs, newest last, and blocks until the user
// picks an action.
type ResultsViewer interface {
	ShowResults(ctx context.Context, runs []TestRun) (ResultsAction, error)
}

// Spinner runs fn while showing that work is in progress.
type Spinner interface {
	Spin(ctx context.Context, title string, fn func(context.Context) error) error
}
