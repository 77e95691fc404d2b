package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the provisioning settings for a project.
type Config struct {
	Version int           `yaml:"version"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Probe   ProbeConfig   `yaml:"probe"`
	Install InstallConfig `yaml:"install"`
	Files   FilesConfig   `yaml:"files"`
}

// RuntimeConfig describes the managed runtime and its required major versions.
type RuntimeConfig struct {
	// RequiredMajors lists the runtime major versions every per-version
	// prerequisite must be present for (e.g. [20, 24]).
	RequiredMajors []int `yaml:"required_majors"`
	// ExecTemplate wraps a command so it runs pinned to one runtime major.
	// Placeholders: {version}, {command}.
	ExecTemplate string `yaml:"exec_template"`
}

// ProbeConfig controls detection behaviour.
type ProbeConfig struct {
	TimeoutSec  int `yaml:"timeout_s"`
	CacheTTLSec int `yaml:"cache_ttl_s"`
}

// InstallConfig controls installation behaviour.
type InstallConfig struct {
	StepTimeoutSec int `yaml:"step_timeout_s"`
	// Concurrency caps how many missing majors install at once. Version
	// managers mutate shared state, so the default stays at 1.
	Concurrency int `yaml:"concurrency"`
}

// FilesConfig overrides default file locations.
type FilesConfig struct {
	Catalog string `yaml:"catalog"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Runtime: RuntimeConfig{
			RequiredMajors: []int{20, 24},
			ExecTemplate:   "fnm exec --using={version} -- {command}",
		},
		Probe: ProbeConfig{
			TimeoutSec:  10,
			CacheTTLSec: 30,
		},
		Install: InstallConfig{
			StepTimeoutSec: 600,
			Concurrency:    1,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if len(c.Runtime.RequiredMajors) == 0 {
		c.Runtime.RequiredMajors = defaults.Runtime.RequiredMajors
	}
	if c.Runtime.ExecTemplate == "" {
		c.Runtime.ExecTemplate = defaults.Runtime.ExecTemplate
	}
	if c.Probe.TimeoutSec == 0 {
		c.Probe.TimeoutSec = defaults.Probe.TimeoutSec
	}
	if c.Probe.CacheTTLSec == 0 {
		c.Probe.CacheTTLSec = defaults.Probe.CacheTTLSec
	}
	if c.Install.StepTimeoutSec == 0 {
		c.Install.StepTimeoutSec = defaults.Install.StepTimeoutSec
	}
	if c.Install.Concurrency == 0 {
		c.Install.Concurrency = defaults.Install.Concurrency
	}
}

// ProbeTimeout returns the probe timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSec) * time.Second
}

// CacheTTL returns the probe cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Probe.CacheTTLSec) * time.Second
}

// StepTimeout returns the install step timeout as a duration.
func (c Config) StepTimeout() time.Duration {
	return time.Duration(c.Install.StepTimeoutSec) * time.Second
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
