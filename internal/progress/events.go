package progress

import "fmt"

// Outcome classifies how an install run ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Event is one update in the unified 0-100 progress stream of an install
// run. Percent is monotonically non-decreasing within a run, and exactly one
// event per run is terminal.
type Event struct {
	Percent  int     `json:"percent"`
	Phase    string  `json:"phase"`
	Terminal bool    `json:"terminal"`
	Outcome  Outcome `json:"outcome,omitempty"`
	// Failure detail, set on a failed terminal event so the UI can show
	// which command broke and how.
	FailedCommand string `json:"failed_command,omitempty"`
	ExitCode      int    `json:"exit_code,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// Sink receives progress events. Implementations must be safe for calls from
// multiple goroutines; the synthetic strategy reports from a timer while the
// command runs.
type Sink func(Event)

// StepError reports the command that aborted an install run.
type StepError struct {
	Step     string
	Command  string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %q: command %q: %v", e.Step, e.Command, e.Err)
	}
	return fmt.Sprintf("step %q: command %q exited %d", e.Step, e.Command, e.ExitCode)
}

func (e *StepError) Unwrap() error { return e.Err }
