package config

import (
	"fmt"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate runs all strict validations against the config and returns
// structured results.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateMajors()...)
	results = append(results, c.validateExecTemplate()...)
	results = append(results, c.validateLimits()...)
	return results
}

func (c Config) validateMajors() []ValidationResult {
	var results []ValidationResult
	seen := map[int]bool{}
	for _, major := range c.Runtime.RequiredMajors {
		if major <= 0 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("required major %d must be positive", major),
			})
			continue
		}
		if seen[major] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("required major %d listed more than once", major),
			})
		}
		seen[major] = true
	}
	return results
}

func (c Config) validateExecTemplate() []ValidationResult {
	var results []ValidationResult
	tmpl := c.Runtime.ExecTemplate
	if !strings.Contains(tmpl, "{command}") {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "runtime.exec_template must contain {command}",
		})
	}
	if !strings.Contains(tmpl, "{version}") {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "runtime.exec_template must contain {version}",
		})
	}
	return results
}

func (c Config) validateLimits() []ValidationResult {
	var results []ValidationResult
	if c.Probe.TimeoutSec < 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "probe.timeout_s must not be negative",
		})
	}
	if c.Install.Concurrency < 1 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "install.concurrency must be at least 1",
		})
	}
	if c.Install.Concurrency > 1 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "install.concurrency above 1 can corrupt version-manager state if installers touch a shared registry",
		})
	}
	return results
}

// HasErrors reports whether any result is at error level.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}
