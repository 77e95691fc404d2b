// Package probe determines, per prerequisite and per required runtime major
// version, whether the tool is actually present.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"envkit/internal/catalog"
	"envkit/internal/execx"
	"envkit/internal/logx"
	"envkit/internal/ttlcache"
)

// VersionStatus is the result of probing one prerequisite for one runtime
// major version. Installed and missing are strictly complementary; there is
// no third state.
type VersionStatus struct {
	// Major is the runtime major version, 0 for global prerequisites.
	Major int `json:"major"`
	// DisplayVersion is the human label for this variant ("20", "global").
	DisplayVersion string `json:"display_version"`
	// ComponentVersion is the version string extracted from the check's
	// stdout, when a pattern is configured and matched. Cosmetic.
	ComponentVersion string `json:"component_version,omitempty"`
	// BelowMinimum flags an extracted version older than the configured
	// minimum. Informational; it never affects Installed.
	BelowMinimum bool `json:"below_minimum,omitempty"`
	// Installed is true exactly when the check command exited 0.
	Installed bool `json:"installed"`
}

// Missing reports the complement of Installed.
func (s VersionStatus) Missing() bool { return !s.Installed }

// Outcome aggregates the statuses over all required majors for one
// prerequisite. Produced fresh per probe call (the cache may return a prior
// instance) and consumed immediately.
type Outcome struct {
	PrerequisiteID string          `json:"prerequisite_id"`
	Statuses       []VersionStatus `json:"statuses"`
	// MissingMajors lists the majors whose check did not exit 0, ascending.
	MissingMajors []int `json:"missing_majors"`
}

// Satisfied reports whether every probed variant is installed.
func (o Outcome) Satisfied() bool {
	for _, s := range o.Statuses {
		if s.Missing() {
			return false
		}
	}
	return true
}

// Prober runs detection checks through a command runner, caching outcomes
// for a short window.
type Prober struct {
	runner  execx.Runner
	cache   *ttlcache.Cache[Outcome]
	timeout time.Duration
	logger  *log.Logger
}

// New creates a prober. A nil logger discards trace output.
func New(runner execx.Runner, ttl, timeout time.Duration, logger *log.Logger) *Prober {
	if logger == nil {
		logger = logx.Discard()
	}
	return &Prober{
		runner:  runner,
		cache:   ttlcache.New[Outcome](ttl),
		timeout: timeout,
		logger:  logger,
	}
}

// CacheKey derives the cache key for a prerequisite and its required majors.
// The major list is sorted so equivalent requests share an entry.
func CacheKey(prerequisiteID string, majors []int) string {
	sorted := append([]int(nil), majors...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, m := range sorted {
		parts[i] = strconv.Itoa(m)
	}
	return prerequisiteID + "@" + strings.Join(parts, ",")
}

// Probe returns the per-version outcome for a prerequisite, consulting the
// cache first. Concurrent probes for the same key share one execution.
//
// Command-level failures never surface as errors: a check that exits
// non-zero, fails to spawn or times out marks that variant missing. The
// error return is reserved for cancellation.
func (p *Prober) Probe(ctx context.Context, pre catalog.Prerequisite, requiredMajors []int) (Outcome, error) {
	majors := requiredMajors
	if !pre.PerVersion {
		majors = nil
	}
	key := CacheKey(pre.ID, majors)
	return p.cache.GetOrCompute(ctx, key, func(ctx context.Context) (Outcome, error) {
		return p.probeFresh(ctx, pre, majors)
	})
}

// Invalidate drops the cached outcome for a prerequisite so the next probe
// runs live. Called after a successful install of that same key.
func (p *Prober) Invalidate(prerequisiteID string, majors []int) {
	p.cache.Invalidate(CacheKey(prerequisiteID, majors))
}

func (p *Prober) probeFresh(ctx context.Context, pre catalog.Prerequisite, majors []int) (Outcome, error) {
	outcome := Outcome{PrerequisiteID: pre.ID}

	if len(majors) == 0 {
		status, err := p.checkOne(ctx, pre, 0)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Statuses = []VersionStatus{status}
		if status.Missing() {
			outcome.MissingMajors = []int{}
		}
		return outcome, nil
	}

	// Distinct majors are independent; probe them in parallel and return
	// only once every check has completed.
	statuses := make([]VersionStatus, len(majors))
	g, gctx := errgroup.WithContext(ctx)
	for i, major := range majors {
		i, major := i, major
		g.Go(func() error {
			status, err := p.checkOne(gctx, pre, major)
			if err != nil {
				return err
			}
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Major < statuses[j].Major })
	outcome.Statuses = statuses
	for _, s := range statuses {
		if s.Missing() {
			outcome.MissingMajors = append(outcome.MissingMajors, s.Major)
		}
	}
	return outcome, nil
}

// checkOne runs the check command for one variant. The exit code is the
// single source of truth: 0 means installed, anything else means missing.
// Spawn failures and timeouts are likewise missing — absence of an error is
// never taken as evidence of success, and no status is ever inferred from
// whether output was produced.
func (p *Prober) checkOne(ctx context.Context, pre catalog.Prerequisite, major int) (VersionStatus, error) {
	status := VersionStatus{Major: major, DisplayVersion: "global"}
	if major > 0 {
		status.DisplayVersion = strconv.Itoa(major)
	}

	command := pre.Check.Command
	if major > 0 {
		command = strings.ReplaceAll(command, catalog.VersionPlaceholder, strconv.Itoa(major))
	}

	result, err := p.runner.Run(ctx, command, execx.Options{
		PinnedMajor: major,
		Timeout:     p.timeout,
		Shell:       true,
	})
	switch {
	case err == nil:
		status.Installed = result.ExitCode == 0
		if result.ExitCode != 0 {
			p.logger.Printf("probe %s (%s): exit %d", pre.ID, status.DisplayVersion, result.ExitCode)
		}
	case errors.Is(err, execx.ErrTimeout):
		p.logger.Printf("probe %s (%s): timeout after %s", pre.ID, status.DisplayVersion, p.timeout)
		status.Installed = false
	case execx.IsSpawnError(err):
		p.logger.Printf("probe %s (%s): spawn failed: %v", pre.ID, status.DisplayVersion, err)
		status.Installed = false
	default:
		// Cancellation propagates; it is not a probe result.
		return VersionStatus{}, fmt.Errorf("probe %s: %w", pre.ID, err)
	}

	if status.Installed && pre.Check.VersionPattern != "" {
		status.ComponentVersion = extractVersion(pre.Check.VersionPattern, string(result.Stdout))
		if status.ComponentVersion != "" && pre.Check.MinVersion != "" {
			status.BelowMinimum = belowMinimum(status.ComponentVersion, pre.Check.MinVersion)
		}
	}

	return status, nil
}

// extractVersion applies the configured pattern to the check's stdout. Any
// failure here is swallowed: extraction is cosmetic and must not affect
// installed status.
func extractVersion(pattern, stdout string) string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(stdout)
	if match == nil {
		return ""
	}
	if len(match) > 1 {
		return match[1]
	}
	return match[0]
}

func belowMinimum(version, minimum string) bool {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return false
	}
	m, err := semver.NewVersion(strings.TrimPrefix(minimum, "v"))
	if err != nil {
		return false
	}
	return v.LessThan(m)
}
