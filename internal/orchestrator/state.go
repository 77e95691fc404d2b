package orchestrator

import "fmt"

// State is the lifecycle position of one prerequisite.
type State string

const (
	StateUnknown          State = "unknown"
	StateChecking         State = "checking"
	StateSatisfied        State = "satisfied"
	StatePartiallyMissing State = "partially_missing"
	StateFullyMissing     State = "fully_missing"
	StateInstalling       State = "installing"
	StateInstalled        State = "installed"
	StateInstallFailed    State = "install_failed"
)

// validTransitions encodes the per-prerequisite state machine:
// Unknown → Checking → {Satisfied | PartiallyMissing | FullyMissing}
// → Installing → {Installed | InstallFailed}. Re-checking is allowed from
// every settled state; a retry re-probes rather than resuming blindly.
var validTransitions = map[State]map[State]bool{
	StateUnknown: {
		StateChecking: true,
	},
	StateChecking: {
		StateSatisfied:        true,
		StatePartiallyMissing: true,
		StateFullyMissing:     true,
		StateChecking:         true,
	},
	StateSatisfied: {
		StateChecking: true,
	},
	StatePartiallyMissing: {
		StateInstalling: true,
		StateChecking:   true,
	},
	StateFullyMissing: {
		StateInstalling: true,
		StateChecking:   true,
	},
	StateInstalling: {
		StateInstalled:     true,
		StateInstallFailed: true,
	},
	StateInstalled: {
		StateChecking: true,
	},
	StateInstallFailed: {
		StateChecking: true,
	},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	return validTransitions[from][to]
}

// Missing reports whether the state indicates at least one missing variant.
func (s State) Missing() bool {
	return s == StatePartiallyMissing || s == StateFullyMissing
}

// Terminal reports whether the state ends an install attempt.
func (s State) Terminal() bool {
	return s == StateInstalled || s == StateInstallFailed
}

func (s State) String() string { return string(s) }

// transitionError is returned on an illegal state change; it indicates a
// bug in the caller's sequencing, not an environmental failure.
func transitionError(id string, from, to State) error {
	return fmt.Errorf("prerequisite %s: illegal transition %s → %s", id, from, to)
}
