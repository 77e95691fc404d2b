package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "check [prerequisite]",
		// Nothing persists between invocations, so a status query is a probe.
		Aliases: []string{"status"},
		Short:   "Probe prerequisites and report what is missing",
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCheck,
	}
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	reports, err := checkTargets(cmd, s, args)
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printReportTable(cmd, reports)
	cmd.Println()
	cmd.Println(summarizeMissing(reports))
	return nil
}

func checkTargets(cmd *cobra.Command, s *session, args []string) ([]reportJSON, error) {
	if len(args) == 1 {
		if _, ok := s.Catalog.Find(args[0]); !ok {
			return nil, fmt.Errorf("unknown prerequisite: %s", args[0])
		}
		report, err := s.Orch.Check(cmd.Context(), args[0])
		if err != nil {
			return nil, err
		}
		return toReportJSON(report), nil
	}

	reports, err := s.Orch.CheckAll(cmd.Context())
	if err != nil {
		return nil, err
	}
	out := make([]reportJSON, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportJSON(r)...)
	}
	return out, nil
}
