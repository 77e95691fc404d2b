// Package catalog loads and validates the prerequisite catalog. Definitions
// are read once at startup and treated as immutable for the session.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Load reads, schema-validates and decodes the catalog file.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes raw catalog JSON.
func Parse(data []byte) (Catalog, error) {
	result, err := ValidateBytes(data)
	if err != nil {
		return Catalog{}, err
	}
	if !result.Valid {
		return Catalog{}, fmt.Errorf("catalog schema: %s", summarizeIssues(result.Issues))
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := checkSemantics(c); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// checkSemantics enforces constraints the JSON schema cannot express.
func checkSemantics(c Catalog) error {
	seen := map[string]bool{}
	for _, p := range c.Prerequisites {
		if seen[p.ID] {
			return fmt.Errorf("duplicate prerequisite id %q", p.ID)
		}
		seen[p.ID] = true

		if p.Check.VersionPattern != "" {
			if _, err := regexp.Compile(p.Check.VersionPattern); err != nil {
				return fmt.Errorf("prerequisite %s: invalid version_pattern: %w", p.ID, err)
			}
		}

		for i, step := range p.Steps {
			if len(step.Commands) == 0 && step.CommandTemplate == "" {
				return fmt.Errorf("prerequisite %s: step %q has neither commands nor command_template", p.ID, step.Name)
			}
			if step.Progress.PercentPattern != "" {
				if _, err := regexp.Compile(step.Progress.PercentPattern); err != nil {
					return fmt.Errorf("prerequisite %s: step %d: invalid percent_pattern: %w", p.ID, i, err)
				}
			}
		}
	}
	return nil
}

func summarizeIssues(issues []ValidationIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Path != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
		} else {
			parts = append(parts, issue.Message)
		}
	}
	return strings.Join(parts, "; ")
}
