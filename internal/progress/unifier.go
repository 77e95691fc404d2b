// Package progress executes ordered install steps while producing a single
// coherent 0-100 progress stream, whatever each step's commands reveal about
// their own progress.
package progress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"envkit/internal/catalog"
	"envkit/internal/execx"
	"envkit/internal/logx"
)

// Step is one resolved phase of an install sequence: its commands run
// strictly in order, and the next step starts only after all have exited.
type Step struct {
	Name     string
	Commands []string
	Weight   int
	Spec     catalog.ProgressSpec
	// PinnedMajor pins every command of the step to a runtime major.
	PinnedMajor int
}

// Unifier drives install steps through a command runner and reports unified
// progress to a sink.
type Unifier struct {
	runner      execx.Runner
	stepTimeout time.Duration
	logger      *log.Logger
}

// New creates a unifier. A nil logger discards trace output.
func New(runner execx.Runner, stepTimeout time.Duration, logger *log.Logger) *Unifier {
	if logger == nil {
		logger = logx.Discard()
	}
	return &Unifier{runner: runner, stepTimeout: stepTimeout, logger: logger}
}

// Run executes the steps in declaration order, emitting progress events to
// sink. It guarantees monotonically non-decreasing percent and exactly one
// terminal event: success after the last step, failure on the first command
// that exits non-zero or cannot run, or cancellation when ctx is done.
//
// A step with no commands is skipped, not failed: an unresolved template
// legitimately produces an empty command list.
func (u *Unifier) Run(ctx context.Context, steps []Step, sink Sink) error {
	em := newEmitter(sink)

	weights := make([]int, len(steps))
	for i, s := range steps {
		weights[i] = s.Weight
	}
	spans := computeSpans(weights)

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			em.terminal(Event{Phase: step.Name, Outcome: OutcomeCancelled})
			return err
		}

		if len(step.Commands) == 0 {
			u.logger.Printf("step %q: nothing to run, skipping", step.Name)
			em.progress(spans[i].end, step.Name)
			continue
		}

		em.progress(spans[i].start, step.Name)

		if err := u.runStep(ctx, step, spans[i], em); err != nil {
			if errors.Is(err, context.Canceled) {
				em.terminal(Event{Phase: step.Name, Outcome: OutcomeCancelled})
				return err
			}
			var stepErr *StepError
			event := Event{Phase: step.Name, Outcome: OutcomeFailed, Detail: err.Error()}
			if errors.As(err, &stepErr) {
				event.FailedCommand = stepErr.Command
				event.ExitCode = stepErr.ExitCode
			}
			em.terminal(event)
			return err
		}

		em.progress(spans[i].end, step.Name)
	}

	em.terminal(Event{Percent: 100, Phase: "done", Outcome: OutcomeSuccess})
	return nil
}

// runStep executes one step's commands sequentially under its strategy.
func (u *Unifier) runStep(ctx context.Context, step Step, sp span, em *emitter) error {
	kind := selectStrategy(step.Spec)

	var lineSink func(line string)
	switch kind {
	case strategyExact:
		parser, err := newExactParser(step.Spec.PercentPattern)
		if err != nil {
			// Validated at catalog load; a broken pattern here degrades to
			// immediate reporting instead of failing the install.
			u.logger.Printf("step %q: bad percent pattern: %v", step.Name, err)
			break
		}
		lineSink = func(line string) {
			if pct := parser.parse(line); pct >= 0 {
				em.progress(sp.at(float64(pct)/100), step.Name)
			}
		}
	case strategyMilestone:
		tracker := newMilestoneTracker(step.Spec.Milestones)
		lineSink = func(line string) {
			if fraction := tracker.observe(line); fraction >= 0 {
				em.progress(sp.at(fraction), step.Name)
			}
		}
	}

	if kind == strategySynthetic {
		stop := u.startSynthetic(ctx, step, sp, em)
		defer stop()
	}

	for _, command := range step.Commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		opts := execx.Options{
			PinnedMajor: step.PinnedMajor,
			Timeout:     u.stepTimeout,
			Shell:       true,
		}
		if lineSink != nil {
			// Progress markers show up on either stream depending on the
			// tool, so watch both.
			stdout := newLineWriter(lineSink)
			stderr := newLineWriter(lineSink)
			opts.Stdout = stdout
			opts.Stderr = stderr
			defer stdout.Flush()
			defer stderr.Flush()
		}

		u.logger.Printf("step %q: run %q", step.Name, command)
		result, err := u.runner.Run(ctx, command, opts)
		switch {
		case err == nil && result.ExitCode == 0:
			continue
		case err == nil:
			return &StepError{Step: step.Name, Command: command, ExitCode: result.ExitCode}
		case errors.Is(err, context.Canceled):
			return err
		default:
			// Spawn failures and timeouts abort the run like a non-zero exit.
			return &StepError{Step: step.Name, Command: command, Err: err}
		}
	}
	return nil
}

// startSynthetic interpolates progress linearly against the step's estimated
// duration, capped just short of the step ceiling until the commands exit.
func (u *Unifier) startSynthetic(ctx context.Context, step Step, sp span, em *emitter) (stop func()) {
	estimate := time.Duration(step.Spec.EstimatedSec) * time.Second
	done := make(chan struct{})
	var once sync.Once

	go func() {
		started := time.Now()
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fraction := float64(time.Since(started)) / float64(estimate)
				percent := sp.at(fraction)
				if percent >= sp.end {
					percent = sp.end - 1
				}
				em.progress(percent, step.Name)
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// emitter serializes events, enforces monotonic percent and allows exactly
// one terminal event per run.
type emitter struct {
	mu       sync.Mutex
	sink     Sink
	last     int
	finished bool
}

func newEmitter(sink Sink) *emitter {
	if sink == nil {
		sink = func(Event) {}
	}
	return &emitter{sink: sink}
}

func (e *emitter) progress(percent int, phase string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return
	}
	if percent < e.last {
		percent = e.last
	}
	if percent > 100 {
		percent = 100
	}
	e.last = percent
	e.sink(Event{Percent: percent, Phase: phase})
}

func (e *emitter) terminal(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return
	}
	e.finished = true
	if event.Percent < e.last {
		event.Percent = e.last
	}
	if event.Outcome == OutcomeSuccess {
		event.Percent = 100
	}
	e.last = event.Percent
	event.Terminal = true
	e.sink(event)
}

// lineWriter splits streamed command output into lines for progress
// scanning. Both \n and \r terminate a line; interactive installers redraw
// progress bars with bare carriage returns.
type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(line string)
}

var _ io.Writer = (*lineWriter)(nil)

func newLineWriter(emit func(line string)) *lineWriter {
	return &lineWriter{emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		idx := bytes.IndexAny(data, "\r\n")
		if idx < 0 {
			break
		}
		line := string(data[:idx])
		w.buf.Next(idx + 1)
		if line != "" {
			w.emit(line)
		}
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}
