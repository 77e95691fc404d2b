package probe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envkit/internal/catalog"
	"envkit/internal/execx"
)

// fakeRunner scripts results by pinned major. Exit codes come back as data;
// spawn failures and timeouts come back as errors, matching the real runner.
type fakeRunner struct {
	mu       sync.Mutex
	calls    int32
	commands []string

	exitCodes map[int]int // pinned major -> exit code
	stdout    map[int]string
	errs      map[int]error
}

func (f *fakeRunner) Run(_ context.Context, command string, opts execx.Options) (execx.Result, error) {
	f.mu.Lock()
	f.calls++
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if err, ok := f.errs[opts.PinnedMajor]; ok {
		return execx.Result{}, err
	}
	return execx.Result{
		ExitCode: f.exitCodes[opts.PinnedMajor],
		Stdout:   []byte(f.stdout[opts.PinnedMajor]),
	}, nil
}

func (f *fakeRunner) callCount() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func perVersionPre() catalog.Prerequisite {
	return catalog.Prerequisite{
		ID:         "project-cli",
		Name:       "Project CLI",
		PerVersion: true,
		Check: catalog.CheckSpec{
			Command:        "project-cli --version",
			VersionPattern: `([0-9]+\.[0-9]+\.[0-9]+)`,
		},
	}
}

func TestProbeExitCodeIsSingleSourceOfTruth(t *testing.T) {
	runner := &fakeRunner{
		exitCodes: map[int]int{20: 0, 24: 1},
		stdout:    map[int]string{20: "project-cli 2.1.0\n", 24: "command not found but printed output"},
	}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.NoError(t, err)

	require.Len(t, outcome.Statuses, 2)
	assert.True(t, outcome.Statuses[0].Installed, "exit 0 means installed")
	assert.False(t, outcome.Statuses[1].Installed, "non-zero exit means missing, output is irrelevant")
	assert.Equal(t, []int{24}, outcome.MissingMajors)
	assert.False(t, outcome.Satisfied())
}

func TestProbeAllMissing(t *testing.T) {
	runner := &fakeRunner{exitCodes: map[int]int{20: 1, 24: 1}}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), perVersionPre(), []int{24, 20})
	require.NoError(t, err)
	assert.Equal(t, []int{20, 24}, outcome.MissingMajors, "missing majors are sorted ascending")
}

func TestProbeSpawnErrorMeansMissing(t *testing.T) {
	runner := &fakeRunner{
		exitCodes: map[int]int{20: 0},
		errs: map[int]error{
			24: &execx.SpawnError{Command: "project-cli --version", Err: errors.New("not found")},
		},
	}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.NoError(t, err, "spawn failures are a status, not an error")
	assert.Equal(t, []int{24}, outcome.MissingMajors)
}

func TestProbeTimeoutMeansMissing(t *testing.T) {
	runner := &fakeRunner{errs: map[int]error{20: execx.ErrTimeout, 24: execx.ErrTimeout}}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.NoError(t, err)
	assert.Equal(t, []int{20, 24}, outcome.MissingMajors)
	for _, s := range outcome.Statuses {
		assert.False(t, s.Installed, "timeout must never report installed")
	}
}

func TestProbeCancellationPropagates(t *testing.T) {
	runner := &fakeRunner{errs: map[int]error{20: context.Canceled, 24: context.Canceled}}
	p := New(runner, time.Minute, time.Second, nil)

	_, err := p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProbeVersionExtraction(t *testing.T) {
	pre := perVersionPre()
	pre.Check.MinVersion = "2.0.0"
	runner := &fakeRunner{
		exitCodes: map[int]int{20: 0, 24: 0},
		stdout:    map[int]string{20: "project-cli 2.1.0\n", 24: "project-cli 1.9.3\n"},
	}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), pre, []int{20, 24})
	require.NoError(t, err)

	assert.Equal(t, "2.1.0", outcome.Statuses[0].ComponentVersion)
	assert.False(t, outcome.Statuses[0].BelowMinimum)
	assert.Equal(t, "1.9.3", outcome.Statuses[1].ComponentVersion)
	assert.True(t, outcome.Statuses[1].BelowMinimum)
	assert.True(t, outcome.Satisfied(), "below-minimum is informational, not missing")
}

func TestProbeExtractionFailureIsSwallowed(t *testing.T) {
	runner := &fakeRunner{
		exitCodes: map[int]int{20: 0},
		stdout:    map[int]string{20: "no digits here"},
	}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), perVersionPre(), []int{20})
	require.NoError(t, err)
	assert.True(t, outcome.Statuses[0].Installed)
	assert.Empty(t, outcome.Statuses[0].ComponentVersion)
}

func TestProbeGlobalPrerequisiteCheckedOnce(t *testing.T) {
	pre := catalog.Prerequisite{
		ID:    "fnm",
		Name:  "Fast Node Manager",
		Check: catalog.CheckSpec{Command: "fnm --version"},
	}
	runner := &fakeRunner{exitCodes: map[int]int{0: 0}}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), pre, []int{20, 24})
	require.NoError(t, err)
	require.Len(t, outcome.Statuses, 1)
	assert.Equal(t, "global", outcome.Statuses[0].DisplayVersion)
	assert.True(t, outcome.Satisfied())
	assert.Equal(t, int32(1), runner.callCount())
}

func TestProbeSubstitutesVersionInCheckCommand(t *testing.T) {
	pre := perVersionPre()
	pre.Check.Command = "node-{version} --version"
	runner := &fakeRunner{exitCodes: map[int]int{20: 0}}
	p := New(runner, time.Minute, time.Second, nil)

	_, err := p.Probe(context.Background(), pre, []int{20})
	require.NoError(t, err)
	require.Len(t, runner.commands, 1)
	assert.Equal(t, "node-20 --version", runner.commands[0])
}

func TestProbeCacheHitSkipsRunner(t *testing.T) {
	runner := &fakeRunner{exitCodes: map[int]int{20: 0, 24: 0}}
	p := New(runner, time.Minute, time.Second, nil)

	_, err := p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.NoError(t, err)
	first := runner.callCount()

	_, err = p.Probe(context.Background(), perVersionPre(), []int{24, 20})
	require.NoError(t, err)
	assert.Equal(t, first, runner.callCount(), "cache hit must not invoke the runner")
}

func TestProbeInvalidateForcesFreshCheck(t *testing.T) {
	runner := &fakeRunner{exitCodes: map[int]int{20: 1, 24: 1}}
	p := New(runner, time.Minute, time.Second, nil)

	outcome, err := p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.NoError(t, err)
	assert.Equal(t, []int{20, 24}, outcome.MissingMajors)

	// Simulate a completed install, then invalidate.
	runner.mu.Lock()
	runner.exitCodes = map[int]int{20: 0, 24: 0}
	runner.mu.Unlock()
	p.Invalidate("project-cli", []int{20, 24})

	outcome, err = p.Probe(context.Background(), perVersionPre(), []int{20, 24})
	require.NoError(t, err)
	assert.True(t, outcome.Satisfied(), "stale cache must not mask a completed install")
}

func TestProbeConcurrentSameKeyDeduplicated(t *testing.T) {
	release := make(chan struct{})
	runner := &blockingRunner{release: release}
	p := New(runner, time.Minute, time.Second, nil)

	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Probe(context.Background(), perVersionPre(), []int{20, 24})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// One flight probes two majors: exactly two runner invocations total.
	assert.Equal(t, int32(2), runner.calls.Load(), "concurrent probes for one key must share a flight")
}

func TestCacheKeySortsMajors(t *testing.T) {
	assert.Equal(t, CacheKey("x", []int{24, 20}), CacheKey("x", []int{20, 24}))
	assert.NotEqual(t, CacheKey("x", []int{20}), CacheKey("x", []int{20, 24}))
	assert.Equal(t, "x@", CacheKey("x", nil))
}

type blockingRunner struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingRunner) Run(_ context.Context, command string, _ execx.Options) (execx.Result, error) {
	b.calls.Add(1)
	<-b.release
	if strings.Contains(command, "--version") {
		return execx.Result{ExitCode: 0}, nil
	}
	return execx.Result{ExitCode: 1}, nil
}
