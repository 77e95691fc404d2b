package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"envkit/internal/catalog"
	"envkit/internal/orchestrator"
	"envkit/internal/tui"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [prerequisite]",
		Short: "Install missing prerequisites with live progress",
		Long: `Probes each prerequisite and installs every missing variant. Already
satisfied prerequisites are skipped. Progress from heterogeneous install
tools is unified into a single 0-100 bar per variant.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInstall,
	}
	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	targets := s.Catalog.Prerequisites
	if len(args) == 1 {
		pre, ok := s.Catalog.Find(args[0])
		if !ok {
			return fmt.Errorf("unknown prerequisite: %s", args[0])
		}
		targets = []catalog.Prerequisite{pre}
	}

	if outputJSON || noTUI {
		return runInstallPlain(cmd, s, targets)
	}
	return runInstallTUI(cmd, s, targets)
}

// installTargets installs each target in order, stopping at the first
// failure. Earlier successful installs are kept.
func installTargets(ctx context.Context, s *session, targets []catalog.Prerequisite, sink orchestrator.InstallSink) ([]orchestrator.Report, error) {
	reports := make([]orchestrator.Report, 0, len(targets))
	for _, pre := range targets {
		report, err := s.Orch.Install(ctx, pre.ID, sink)
		if err != nil {
			return reports, fmt.Errorf("install %s: %w", pre.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// variantMajors lists the majors an install run can touch for one
// prerequisite: the required majors, or a single major 0 for globals.
func variantMajors(pre catalog.Prerequisite, majors []int) []int {
	if !pre.PerVersion {
		return []int{0}
	}
	return majors
}

func runInstallTUI(cmd *cobra.Command, s *session, targets []catalog.Prerequisite) error {
	model := tui.NewModel("envkit install", []tui.Column{
		{Header: "PREREQUISITE", Width: 20},
		{Header: "VERSION", Width: 8},
		{Header: "STATUS", Width: 12},
		{Header: "PHASE", Width: 24},
	})
	for _, pre := range targets {
		for _, major := range variantMajors(pre, s.Config.Runtime.RequiredMajors) {
			version := "-"
			if major > 0 {
				version = strconv.Itoa(major)
			}
			model.AddRow(tui.RowKey(pre.ID, major), []string{pre.Name, version, "pending", "-"})
		}
	}

	ctx := cmd.Context()
	return tui.RunWithWork(cmd.OutOrStdout(), model, func(send func(tea.Msg)) {
		reporter := tui.NewInstallReporter(send)
		reports, err := installTargets(ctx, s, targets, reporter.Sink())
		settleUntouchedRows(send, s, reports)
		if err != nil {
			send(tui.ErrorMsg{Err: err})
		}
	})
}

// settleUntouchedRows marks rows the install sink never saw. Variants that
// were already installed produce no progress events, so without this their
// rows would stay "pending" after the run completes.
func settleUntouchedRows(send func(tea.Msg), s *session, reports []orchestrator.Report) {
	for _, report := range reports {
		pre, ok := s.Catalog.Find(report.ID)
		if !ok {
			continue
		}
		missing := make(map[int]bool, len(report.Outcome.MissingMajors))
		for _, m := range report.Outcome.MissingMajors {
			missing[m] = true
		}
		for _, major := range variantMajors(pre, s.Config.Runtime.RequiredMajors) {
			if pre.PerVersion && missing[major] {
				continue
			}
			if !pre.PerVersion && report.State != orchestrator.StateSatisfied {
				continue
			}
			key := tui.RowKey(pre.ID, major)
			send(tui.ProgressMsg{Key: key, Percent: 100})
			send(tui.RowUpdateMsg{Key: key, Fields: map[string]string{
				"STATUS": "satisfied",
				"PHASE":  "-",
			}})
		}
	}
}

func runInstallPlain(cmd *cobra.Command, s *session, targets []catalog.Prerequisite) error {
	var sink orchestrator.InstallSink
	if !outputJSON {
		sink = newPlainSink(cmd)
	}

	reports, err := installTargets(cmd.Context(), s, targets, sink)
	if err != nil {
		return err
	}

	if outputJSON {
		flat := make([]reportJSON, 0, len(reports))
		for _, r := range reports {
			flat = append(flat, toReportJSON(r)...)
		}
		data, merr := json.MarshalIndent(flat, "", "  ")
		if merr != nil {
			return fmt.Errorf("encode json: %w", merr)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, r := range reports {
		cmd.Printf("%s: %s\n", r.Name, r.State)
	}
	return nil
}

// newPlainSink prints throttled progress lines: phase changes, terminal
// events, and 10-point percent advances. Synthetic strategies tick every
// quarter second; printing each tick would drown the output.
func newPlainSink(cmd *cobra.Command) orchestrator.InstallSink {
	var mu sync.Mutex
	lastPercent := make(map[string]int)
	lastPhase := make(map[string]string)

	return func(event orchestrator.InstallEvent) {
		key := tui.RowKey(event.PrerequisiteID, event.Major)

		mu.Lock()
		defer mu.Unlock()

		phaseChanged := event.Event.Phase != lastPhase[key]
		advanced := event.Event.Percent >= lastPercent[key]+10
		if !event.Event.Terminal && !phaseChanged && !advanced {
			return
		}
		lastPercent[key] = event.Event.Percent
		lastPhase[key] = event.Event.Phase

		label := event.Event.Phase
		if event.Event.Terminal {
			label = string(event.Event.Outcome)
			if event.Event.FailedCommand != "" {
				label = fmt.Sprintf("%s (%s, exit %d)", label, event.Event.FailedCommand, event.Event.ExitCode)
			}
		}
		cmd.Printf("%-28s %3d%%  %s\n", key, event.Event.Percent, label)
	}
}
