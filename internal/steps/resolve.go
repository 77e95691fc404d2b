// Package steps turns declarative install-step descriptions into concrete
// command lists.
package steps

import (
	"strings"

	"envkit/internal/catalog"
)

// Context carries the values available for template substitution.
type Context struct {
	// RuntimeVersion is the runtime major version as a string ("20").
	// Empty when no version applies (global prerequisites).
	RuntimeVersion string
}

// Resolve turns a step into its ordered command list.
//
// Precedence: a fixed command list is returned verbatim and ignores the
// context. A template still carrying the version placeholder substitutes the
// context's runtime version; with no version supplied it resolves to an
// empty list, meaning "cannot run yet" rather than an error. A template
// without the placeholder was already specialized upstream and is returned
// as a single-element list unchanged.
func Resolve(step catalog.InstallStep, rctx Context) []string {
	if len(step.Commands) > 0 {
		out := make([]string, len(step.Commands))
		copy(out, step.Commands)
		return out
	}

	if step.CommandTemplate == "" {
		return nil
	}

	if strings.Contains(step.CommandTemplate, catalog.VersionPlaceholder) {
		if rctx.RuntimeVersion == "" {
			return nil
		}
		return []string{strings.ReplaceAll(step.CommandTemplate, catalog.VersionPlaceholder, rctx.RuntimeVersion)}
	}

	return []string{step.CommandTemplate}
}
