package catalog

// VersionPlaceholder is the token substituted with a runtime major version
// in check commands, install templates and the runner's exec template.
const VersionPlaceholder = "{version}"

// Prerequisite describes one external tool the environment needs before
// project setup can proceed. Definitions are loaded once at startup and are
// immutable for the session.
type Prerequisite struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// PerVersion marks the prerequisite as required once per runtime major
	// version; false means a single global check.
	PerVersion bool          `json:"per_version"`
	Check      CheckSpec     `json:"check"`
	Steps      []InstallStep `json:"steps"`
}

// CheckSpec describes how presence of a prerequisite is detected.
type CheckSpec struct {
	// Command is the probe command line; it may contain {version}.
	Command string `json:"command"`
	// VersionPattern optionally extracts a displayed component version from
	// the probe's stdout. The first capture group is used when present.
	VersionPattern string `json:"version_pattern,omitempty"`
	// MinVersion optionally flags extracted versions below this semver as
	// outdated. Informational only; presence is decided by exit code.
	MinVersion string `json:"min_version,omitempty"`
}

// InstallStep is one phase of an install sequence. A step carries either a
// fixed command list or a single command template.
type InstallStep struct {
	Name string `json:"name"`
	// Commands, when set, is the literal ordered command list for this step
	// and takes priority over the template.
	Commands []string `json:"commands,omitempty"`
	// CommandTemplate is a single command line, either still containing
	// {version} or already specialized upstream.
	CommandTemplate string `json:"command_template,omitempty"`
	// Weight sizes this step's share of the 0-100 progress range. Zero
	// means equal weight.
	Weight int `json:"weight,omitempty"`
	// Progress declares what the step's output reveals about its progress;
	// it selects the reporting strategy.
	Progress ProgressSpec `json:"progress,omitempty"`
}

// ProgressSpec declares a step's self-reported progress information.
// Exactly one field is normally set; an empty spec means the step reports
// nothing and progress jumps on completion.
type ProgressSpec struct {
	// PercentPattern is a regex whose first capture group matches a numeric
	// percentage in output lines.
	PercentPattern string `json:"percent_pattern,omitempty"`
	// Milestones are output substrings observed in order, each advancing
	// progress by an equal fraction of the step's range.
	Milestones []string `json:"milestones,omitempty"`
	// EstimatedSec is the expected duration, used to interpolate progress
	// against elapsed time.
	EstimatedSec int `json:"estimated_s,omitempty"`
}

// Catalog is the full set of prerequisite definitions for a project.
type Catalog struct {
	Version       int            `json:"version"`
	Prerequisites []Prerequisite `json:"prerequisites"`
}

// Find returns the prerequisite with the given id.
func (c Catalog) Find(id string) (Prerequisite, bool) {
	for _, p := range c.Prerequisites {
		if p.ID == id {
			return p, true
		}
	}
	return Prerequisite{}, false
}

// IDs returns the catalog's prerequisite identifiers in declaration order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Prerequisites))
	for _, p := range c.Prerequisites {
		ids = append(ids, p.ID)
	}
	return ids
}
