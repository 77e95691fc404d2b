package progress

import (
	"regexp"
	"strconv"
	"strings"

	"envkit/internal/catalog"
)

// strategyKind is the reporting strategy selected by what a step declares
// about its own output. The four behaviours live behind one dispatch rather
// than one-implementation-per-interface subclasses.
type strategyKind int

const (
	// strategyImmediate jumps to the step ceiling when the commands finish.
	strategyImmediate strategyKind = iota
	// strategyExact parses a percentage out of each output line.
	strategyExact
	// strategyMilestone advances as known output substrings appear.
	strategyMilestone
	// strategySynthetic interpolates against elapsed time vs. an estimate.
	strategySynthetic
)

// selectStrategy picks the reporting strategy for a step's progress spec.
// Declared information wins in order of precision: exact markers, then
// milestones, then a duration estimate, then nothing.
func selectStrategy(spec catalog.ProgressSpec) strategyKind {
	switch {
	case spec.PercentPattern != "":
		return strategyExact
	case len(spec.Milestones) > 0:
		return strategyMilestone
	case spec.EstimatedSec > 0:
		return strategySynthetic
	default:
		return strategyImmediate
	}
}

// span is a step's slice of the overall 0-100 range.
type span struct {
	start int
	end   int
}

// at maps a step-local fraction (0..1) into the span.
func (s span) at(fraction float64) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return s.start + int(fraction*float64(s.end-s.start))
}

// computeSpans divides 0-100 among steps proportional to their weights.
// Zero weights count as 1. The last span always ends at exactly 100.
func computeSpans(weights []int) []span {
	total := 0
	effective := make([]int, len(weights))
	for i, w := range weights {
		if w <= 0 {
			w = 1
		}
		effective[i] = w
		total += w
	}

	spans := make([]span, len(weights))
	cum := 0
	for i, w := range effective {
		start := cum * 100 / total
		cum += w
		end := cum * 100 / total
		spans[i] = span{start: start, end: end}
	}
	if len(spans) > 0 {
		spans[len(spans)-1].end = 100
	}
	return spans
}

// exactParser extracts percent values from command output lines.
type exactParser struct {
	re *regexp.Regexp
}

func newExactParser(pattern string) (*exactParser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &exactParser{re: re}, nil
}

// parse returns the step-local percent found in line, or -1.
func (p *exactParser) parse(line string) int {
	match := p.re.FindStringSubmatch(line)
	if match == nil {
		return -1
	}
	raw := match[0]
	if len(match) > 1 {
		raw = match[1]
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return -1
	}
	return int(value)
}

// milestoneTracker watches output for expected substrings, each worth an
// equal fraction of the step's range. Milestones advance cumulatively: a
// later milestone observed first still moves progress to its own fraction.
type milestoneTracker struct {
	milestones []string
	reached    int
}

func newMilestoneTracker(milestones []string) *milestoneTracker {
	return &milestoneTracker{milestones: milestones}
}

// observe returns the cumulative fraction after scanning line, or -1 when
// nothing new was reached.
func (t *milestoneTracker) observe(line string) float64 {
	advanced := false
	for i := t.reached; i < len(t.milestones); i++ {
		if strings.Contains(line, t.milestones[i]) {
			t.reached = i + 1
			advanced = true
		}
	}
	if !advanced {
		return -1
	}
	return float64(t.reached) / float64(len(t.milestones))
}
