// Package orchestrator combines the prober, step resolver and progress
// unifier to answer "what is missing" and "install everything missing".
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"envkit/internal/catalog"
	"envkit/internal/logx"
	"envkit/internal/probe"
	"envkit/internal/progress"
	"envkit/internal/steps"
)

// InstallEvent tags a progress event with the prerequisite and major it
// belongs to, so one sink can render several install runs.
type InstallEvent struct {
	PrerequisiteID string `json:"prerequisite_id"`
	// Major is the runtime major being installed, 0 for global installs.
	Major int `json:"major"`
	Event progress.Event `json:"event"`
}

// InstallSink receives tagged install progress events.
type InstallSink func(InstallEvent)

// Report is the queryable status of one prerequisite for display.
type Report struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	State   State         `json:"state"`
	Outcome probe.Outcome `json:"outcome"`
}

// Options configures an orchestrator.
type Options struct {
	// RequiredMajors are the runtime majors per-version prerequisites must
	// cover.
	RequiredMajors []int
	// InstallConcurrency caps how many missing majors install at once.
	// Defaults to 1: version managers are frequently unsafe for concurrent
	// mutation of their shared state.
	InstallConcurrency int
	Logger             *log.Logger
}

// Orchestrator drives prerequisite checking and installation. Dependencies
// are passed in explicitly so the core is testable without global state.
type Orchestrator struct {
	catalog     catalog.Catalog
	prober      *probe.Prober
	unifier     *progress.Unifier
	majors      []int
	concurrency int
	logger      *log.Logger

	mu       sync.Mutex
	states   map[string]State
	outcomes map[string]probe.Outcome
}

// New creates an orchestrator over the given catalog.
func New(cat catalog.Catalog, prober *probe.Prober, unifier *progress.Unifier, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logx.Discard()
	}
	concurrency := opts.InstallConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	states := make(map[string]State, len(cat.Prerequisites))
	for _, p := range cat.Prerequisites {
		states[p.ID] = StateUnknown
	}
	return &Orchestrator{
		catalog:     cat,
		prober:      prober,
		unifier:     unifier,
		majors:      append([]int(nil), opts.RequiredMajors...),
		concurrency: concurrency,
		logger:      logger,
		states:      states,
		outcomes:    make(map[string]probe.Outcome),
	}
}

// State returns the current state of a prerequisite.
func (o *Orchestrator) State(id string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[id]; ok {
		return s
	}
	return StateUnknown
}

// GetStatus returns the last probed outcome for a prerequisite, if any.
func (o *Orchestrator) GetStatus(id string) (probe.Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	outcome, ok := o.outcomes[id]
	return outcome, ok
}

// Check probes one prerequisite and settles its state.
func (o *Orchestrator) Check(ctx context.Context, id string) (Report, error) {
	pre, ok := o.catalog.Find(id)
	if !ok {
		return Report{}, fmt.Errorf("unknown prerequisite: %s", id)
	}

	if err := o.transition(id, StateChecking); err != nil {
		return Report{}, err
	}

	outcome, err := o.prober.Probe(ctx, pre, o.majors)
	if err != nil {
		// Cancellation mid-check: settle back to a re-checkable state.
		_ = o.transition(id, StateChecking)
		return Report{}, err
	}

	next := settleState(pre, outcome, o.majors)
	if err := o.transition(id, next); err != nil {
		return Report{}, err
	}

	o.mu.Lock()
	o.outcomes[id] = outcome
	o.mu.Unlock()

	return Report{ID: pre.ID, Name: pre.Name, State: next, Outcome: outcome}, nil
}

// CheckAll probes every catalog prerequisite in declaration order.
func (o *Orchestrator) CheckAll(ctx context.Context) ([]Report, error) {
	reports := make([]Report, 0, len(o.catalog.Prerequisites))
	for _, pre := range o.catalog.Prerequisites {
		report, err := o.Check(ctx, pre.ID)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// settleState derives the settled state directly from the probe outcome.
// "Missing" is a direct consequence of the exit-code rule, never of a
// secondary pre-check whose failure mode defaults to "assume installed".
func settleState(pre catalog.Prerequisite, outcome probe.Outcome, majors []int) State {
	if outcome.Satisfied() {
		return StateSatisfied
	}
	if !pre.PerVersion || len(outcome.MissingMajors) >= len(majors) {
		return StateFullyMissing
	}
	return StatePartiallyMissing
}

// Install probes a prerequisite and installs every missing variant,
// reporting live progress to sink. Variants that already succeeded stay
// installed when a later one fails; there is no rollback, and a retry
// re-probes from scratch.
func (o *Orchestrator) Install(ctx context.Context, id string, sink InstallSink) (Report, error) {
	report, err := o.Check(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if report.State == StateSatisfied {
		return report, nil
	}

	pre, _ := o.catalog.Find(id)
	if err := o.transition(id, StateInstalling); err != nil {
		return Report{}, err
	}

	installErr := o.installMissing(ctx, pre, report.Outcome, sink)

	// Even a partial success changed the system; drop the cached outcome so
	// the next probe is live.
	o.invalidate(pre)

	next := StateInstalled
	if installErr != nil {
		next = StateInstallFailed
	}
	if terr := o.transition(id, next); terr != nil {
		return Report{}, terr
	}

	final := Report{ID: pre.ID, Name: pre.Name, State: next, Outcome: report.Outcome}
	return final, installErr
}

// InstallAll checks every prerequisite and installs all missing ones in
// declaration order. The first failure stops the run; earlier successful
// installs are kept.
func (o *Orchestrator) InstallAll(ctx context.Context, sink InstallSink) ([]Report, error) {
	reports := make([]Report, 0, len(o.catalog.Prerequisites))
	for _, pre := range o.catalog.Prerequisites {
		report, err := o.Install(ctx, pre.ID, sink)
		if err != nil {
			return reports, fmt.Errorf("install %s: %w", pre.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// installMissing runs the install sequence for every missing variant,
// bounded by the configured concurrency cap.
func (o *Orchestrator) installMissing(ctx context.Context, pre catalog.Prerequisite, outcome probe.Outcome, sink InstallSink) error {
	if !pre.PerVersion {
		return o.installVariant(ctx, pre, 0, sink)
	}

	missing := outcome.MissingMajors
	if len(missing) == 0 {
		// Defensive invariant: Install is only reached with missing majors;
		// an empty list here means the outcome and state disagree.
		return errors.New("install requested but no majors are missing")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, major := range missing {
		major := major
		g.Go(func() error {
			return o.installVariant(gctx, pre, major, sink)
		})
	}
	return g.Wait()
}

// installVariant resolves and runs the install steps for one variant.
func (o *Orchestrator) installVariant(ctx context.Context, pre catalog.Prerequisite, major int, sink InstallSink) error {
	rctx := steps.Context{}
	if major > 0 {
		rctx.RuntimeVersion = strconv.Itoa(major)
	}

	runSteps := make([]progress.Step, 0, len(pre.Steps))
	for _, step := range pre.Steps {
		runSteps = append(runSteps, progress.Step{
			Name:        step.Name,
			Commands:    steps.Resolve(step, rctx),
			Weight:      step.Weight,
			Spec:        step.Progress,
			PinnedMajor: major,
		})
	}

	o.logger.Printf("install %s (major %d): %d steps", pre.ID, major, len(runSteps))

	var wrapped progress.Sink
	if sink != nil {
		wrapped = func(event progress.Event) {
			sink(InstallEvent{PrerequisiteID: pre.ID, Major: major, Event: event})
		}
	}
	return o.unifier.Run(ctx, runSteps, wrapped)
}

func (o *Orchestrator) invalidate(pre catalog.Prerequisite) {
	majors := o.majors
	if !pre.PerVersion {
		majors = nil
	}
	o.prober.Invalidate(pre.ID, majors)
}

func (o *Orchestrator) transition(id string, to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	from := o.states[id]
	if from == "" {
		from = StateUnknown
	}
	if from != to && !CanTransition(from, to) {
		return transitionError(id, from, to)
	}
	o.states[id] = to
	return nil
}
