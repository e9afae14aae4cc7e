// Package config loads and validates vibe configuration.
//
// Resolution is layered; later sources override earlier ones:
//
//  1. Built-in defaults
//  2. Global config (~/.vibe/config.yaml)
//  3. Project config (.vibe/config.yaml)
//  4. Environment variables (VIBE_*)
//  5. CLI flags
//
// Each key tracks which layer won, so 'vibe status --verbose' can show where
// a value came from. There is no hidden global state: the resolved Config is
// passed explicitly to the workflow controller.
package config

import (
	"fmt"
	"time"

	"github.com/vibe-cli/vibe/internal/errors"
)

const (
	// Dir is the state directory holding config and state files.
	Dir = ".vibe"
	// FileName is the config file name inside Dir.
	FileName = "config.yaml"
)

// ProjectTypes are the supported project archetypes.
var ProjectTypes = []string{"backend", "frontend", "fullstack", "cli", "library"}

// Providers are the supported generation providers.
var Providers = []string{"anthropic", "openai", "google"}

// DualConfig configures the two-model orchestrator.
type DualConfig struct {
	Enabled           bool   `yaml:"enabled"`
	MainProvider      string `yaml:"main_provider"`
	MainModel         string `yaml:"main_model"`
	KnowledgeProvider string `yaml:"knowledge_provider"`
	KnowledgeModel    string `yaml:"knowledge_model"`
}

// RetryConfig bounds the transient-failure retry loop around generation.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// HealingConfig bounds the verify-and-regenerate loop. The bound is explicit
// configuration rather than a constant; the default is 2 attempts.
type HealingConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// Config is the resolved vibe configuration.
type Config struct {
	ProjectName string        `yaml:"project_name"`
	ProjectType string        `yaml:"project_type"`
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model,omitempty"`
	AutoCommit  bool          `yaml:"auto_commit"`
	Language    string        `yaml:"language"`
	TokenBudget int           `yaml:"token_budget"`
	Timeout     time.Duration `yaml:"timeout"`
	Dual        DualConfig    `yaml:"dual"`
	Retry       RetryConfig   `yaml:"retry"`
	Healing     HealingConfig `yaml:"healing"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		ProjectType: "backend",
		Provider:    "anthropic",
		AutoCommit:  true,
		Language:    "en",
		TokenBudget: 100000,
		Timeout:     60 * time.Second,
		Dual: DualConfig{
			Enabled:           true,
			MainProvider:      "anthropic",
			MainModel:         "claude-sonnet-4-20250514",
			KnowledgeProvider: "google",
			KnowledgeModel:    "gemini-2.0-flash",
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
		},
		Healing: HealingConfig{
			MaxAttempts: 2,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ProjectName == "" {
		return errors.ErrConfigMissing("project_name")
	}
	if !oneOf(c.ProjectType, ProjectTypes) {
		return errors.ErrConfigInvalid("project_type",
			fmt.Sprintf("%q is not one of %v", c.ProjectType, ProjectTypes))
	}
	if !oneOf(c.Provider, Providers) {
		return errors.ErrConfigInvalid("provider",
			fmt.Sprintf("%q is not one of %v", c.Provider, Providers))
	}
	if c.Dual.Enabled {
		if !oneOf(c.Dual.MainProvider, Providers) {
			return errors.ErrConfigInvalid("dual.main_provider",
				fmt.Sprintf("%q is not one of %v", c.Dual.MainProvider, Providers))
		}
		if !oneOf(c.Dual.KnowledgeProvider, Providers) {
			return errors.ErrConfigInvalid("dual.knowledge_provider",
				fmt.Sprintf("%q is not one of %v", c.Dual.KnowledgeProvider, Providers))
		}
	}
	if c.TokenBudget < 1000 || c.TokenBudget > 500000 {
		return errors.ErrConfigInvalid("token_budget",
			fmt.Sprintf("%d is outside 1000..500000", c.TokenBudget))
	}
	if c.Timeout <= 0 {
		return errors.ErrConfigInvalid("timeout", "must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.ErrConfigInvalid("retry.max_attempts", "must be at least 1")
	}
	if c.Healing.MaxAttempts < 0 {
		return errors.ErrConfigInvalid("healing.max_attempts", "must not be negative")
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
