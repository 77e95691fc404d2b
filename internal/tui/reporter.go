package tui

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"envkit/internal/orchestrator"
	"envkit/internal/progress"
)

// RowKey identifies the table row for one (prerequisite, major) variant.
func RowKey(prerequisiteID string, major int) string {
	return prerequisiteID + "@" + strconv.Itoa(major)
}

// InstallReporter adapts orchestrator install events to bubbletea messages.
// Events for a per-version prerequisite update only that major's row; events
// for a global prerequisite (major 0) update its single row.
type InstallReporter struct {
	send func(tea.Msg)
}

// NewInstallReporter constructs a reporter around a message sender.
func NewInstallReporter(send func(tea.Msg)) *InstallReporter {
	return &InstallReporter{send: send}
}

// Sink returns the InstallSink to hand to the orchestrator.
func (r *InstallReporter) Sink() orchestrator.InstallSink {
	return func(event orchestrator.InstallEvent) {
		key := RowKey(event.PrerequisiteID, event.Major)

		r.send(ProgressMsg{Key: key, Percent: event.Event.Percent})

		status := "installing"
		phase := event.Event.Phase
		if event.Event.Terminal {
			switch event.Event.Outcome {
			case progress.OutcomeSuccess:
				status = "installed"
				phase = ""
			case progress.OutcomeCancelled:
				status = "cancelled"
			default:
				status = "failed"
				phase = event.Event.FailedCommand
			}
		}
		r.send(RowUpdateMsg{Key: key, Fields: map[string]string{
			"STATUS": status,
			"PHASE":  NonEmptyOrDash(phase),
		}})
	}
}
