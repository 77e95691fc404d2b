package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envkit/internal/tui"
)

// printReportTable writes a plain-text status table: one line per probed
// variant, colored by status.
func printReportTable(cmd *cobra.Command, reports []reportJSON) {
	headers := []string{"PREREQUISITE", "VERSION", "STATUS", "COMPONENT"}
	widths := []int{20, 8, 14, 12}

	parts := make([]string, len(headers))
	for i, h := range headers {
		parts[i] = tui.HeaderStyle.Render(padRight(h, widths[i]))
	}
	cmd.Println(strings.Join(parts, "  "))

	for _, report := range reports {
		for _, v := range report.Variants {
			label := "installed"
			switch {
			case !v.Installed:
				label = "missing"
			case v.BelowMinimum:
				label = "below minimum"
			}

			row := []string{
				padRight(report.Name, widths[0]),
				padRight(tui.NonEmptyOrDash(v.Version), widths[1]),
				tui.StatusStyle(label).Render(padRight(label, widths[2])),
				padRight(tui.NonEmptyOrDash(v.ComponentVersion), widths[3]),
			}
			cmd.Println(strings.Join(row, "  "))
		}
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// summarizeMissing renders a one-line summary like "2 prerequisites missing".
func summarizeMissing(reports []reportJSON) string {
	missing := 0
	for _, r := range reports {
		for _, v := range r.Variants {
			if !v.Installed {
				missing++
				break
			}
		}
	}
	if missing == 0 {
		return "all prerequisites satisfied"
	}
	plural := "prerequisites"
	if missing == 1 {
		plural = "prerequisite"
	}
	return fmt.Sprintf("%d %s missing, run 'envkit install'", missing, plural)
}
