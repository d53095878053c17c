package promptscore

import "fmt"

// Step is a stage of the test wizard.
type Step int

// Wizard steps, in order.
const (
	StepSetup Step = iota
	StepInstructions
	StepTest
	StepResults
)

// Steps lists every step in wizard order.
var Steps = []Step{StepSetup, StepInstructions, StepTest, StepResults}

func (s Step) String() string {
	switch s {
	case StepSetup:
		return "setup"
	case StepInstructions:
		return "instructions"
	case StepTest:
		return "test"
	case StepResults:
		return "results"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Title is the label shown to users.
func (s Step) Title() string {
	switch s {
	case StepSetup:
		return "Setup"
	case StepInstructions:
		return "Instructions"
	case StepTest:
		return "Test"
	case StepResults:
		return "Results"
	default:
		return s.String()
	}
}

// Progress is the session state the step predicates are evaluated against.
type Progress struct {
	CredentialValid bool
	ModelSelected   bool
	Instructions    string
	HasResponse     bool
	HasMetrics      bool
	HistoryLen      int
}

// Complete reports whether step s is complete.
func (p Progress) Complete(s Step) bool {
	switch s {
	case StepSetup:
		return p.CredentialValid && p.ModelSelected
	case StepInstructions:
		return InstructionsComplete(p.Instructions)
	case StepTest:
		return p.HasResponse && p.HasMetrics
	case StepResults:
		return p.Accessible(StepResults)
	default:
		return false
	}
}

// Accessible reports whether step s may be entered.
// Setup, Instructions and Test unlock in order. Results is also reachable
// whenever history is non-empty so past runs stay viewable.
func (p Progress) Accessible(s Step) bool {
	switch s {
	case StepSetup:
		return true
	case StepInstructions:
		return p.Complete(StepSetup)
	case StepTest:
		return p.Accessible(StepInstructions) && p.Complete(StepInstructions)
	case StepResults:
		return (p.Accessible(StepTest) && p.Complete(StepTest)) || p.HistoryLen > 0
	default:
		return false
	}
}

// RefusalReason explains why a step cannot be entered.
type RefusalReason string

// Refusal reasons.
const (
	ReasonNoCredential           RefusalReason = "verify an API key first"
	ReasonNoModel                RefusalReason = "select a model first"
	ReasonInstructionsIncomplete RefusalReason = "instructions must be at least 10 characters"
	ReasonTestIncomplete         RefusalReason = "run a test first"
	ReasonUnknownStep            RefusalReason = "unknown step"
)

// Refusal is returned when a step transition is not allowed.
type Refusal struct {
	Step   Step
	Reason RefusalReason
}

func (r *Refusal) Error() string {
	return fmt.Sprintf("cannot open %s: %s", r.Step, r.Reason)
}

// refusalReason returns the first unmet precondition of s.
func (p Progress) refusalReason(s Step) RefusalReason {
	switch s {
	case StepInstructions, StepTest, StepResults:
	default:
		return ReasonUnknownStep
	}
	if !p.CredentialValid {
		return ReasonNoCredential
	}
	if !p.ModelSelected {
		return ReasonNoModel
	}
	if s == StepInstructions {
		return ""
	}
	if !p.Complete(StepInstructions) {
		return ReasonInstructionsIncomplete
	}
	if s == StepTest {
		return ""
	}
	return ReasonTestIncomplete
}

// Machine tracks the current wizard step. It is a plain value; every
// transition returns a new Machine and never touches views or storage.
type Machine struct {
	current Step
}

// NewMachine returns a machine positioned on StepSetup.
func NewMachine() Machine {
	return Machine{current: StepSetup}
}

// Current returns the active step.
func (m Machine) Current() Step {
	return m.current
}

// Request moves to step to if it is accessible under p. Otherwise the
// machine is returned unchanged together with a *Refusal.
func (m Machine) Request(to Step, p Progress) (Machine, error) {
	if to < StepSetup || to > StepResults {
		return m, &Refusal{Step: to, Reason: ReasonUnknownStep}
	}
	if !p.Accessible(to) {
		return m, &Refusal{Step: to, Reason: p.refusalReason(to)}
	}
	return Machine{current: to}, nil
}

// CompleteEvaluation advances from Test to Results once a run has finished.
// This is the only transition the machine makes on its own.
func (m Machine) CompleteEvaluation(p Progress) (Machine, error) {
	if m.current != StepTest {
		return m, nil
	}
	return m.Request(StepResults, p)
}

// Reconcile falls back to the furthest accessible step at or before the
// current one, for when inputs changed under the active step.
func (m Machine) Reconcile(p Progress) Machine {
	for s := m.current; s > StepSetup; s-- {
		if p.Accessible(s) {
			return Machine{current: s}
		}
	}
	return Machine{current: StepSetup}
}

// Reset returns the machine to StepSetup.
func (m Machine) Reset() Machine {
	return NewMachine()
}
