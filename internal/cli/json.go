package cli

import "envkit/internal/orchestrator"

// variantJSON is the machine-readable view of a single probed variant.
type variantJSON struct {
	Version          string `json:"version"`
	Installed        bool   `json:"installed"`
	ComponentVersion string `json:"componentVersion,omitempty"`
	BelowMinimum     bool   `json:"belowMinimum,omitempty"`
}

// reportJSON flattens an orchestrator report for --json output and for the
// plain table renderer.
type reportJSON struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Variants []variantJSON `json:"variants"`
}

func toReportJSON(r orchestrator.Report) []reportJSON {
	out := reportJSON{
		ID:    r.ID,
		Name:  r.Name,
		State: r.State.String(),
	}
	for _, status := range r.Outcome.Statuses {
		out.Variants = append(out.Variants, variantJSON{
			Version:          status.DisplayVersion,
			Installed:        status.Installed,
			ComponentVersion: status.ComponentVersion,
			BelowMinimum:     status.BelowMinimum,
		})
	}
	return []reportJSON{out}
}
