// Package config loads application configuration from baseDir/config.yaml.
// Configuration is read once at startup; changing it requires a restart.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/auralabs/aura/internal/budget"
	"github.com/auralabs/aura/internal/persona"
	"github.com/auralabs/aura/internal/triggers"
)

// DefaultRetrievalTimeoutSeconds bounds the Layer-6 memory lookup.
const DefaultRetrievalTimeoutSeconds = 5

// Config holds application configuration.
type Config struct {
	// Identity provides the Layer-1 fields and template.
	Identity persona.Identity `yaml:"identity"`

	// Stages optionally overrides per-stage overlay texts (keys 1-5).
	Stages map[int]string `yaml:"stages,omitempty"`

	// Budgets holds the per-tier token budgets and the hard cap.
	Budgets budget.Budgets `yaml:"budgets"`

	// Patterns optionally overrides the trigger pattern lists.
	Patterns PatternLists `yaml:"patterns"`

	// MemoryDir overrides where the fact store lives. Defaults to the
	// config base directory.
	MemoryDir string `yaml:"memory_dir,omitempty"`

	// RetrievalTimeoutSeconds caps the memory lookup per turn.
	RetrievalTimeoutSeconds int `yaml:"retrieval_timeout_seconds,omitempty"`
}

// PatternLists holds regex source lists for trigger detection. Empty
// lists fall back to the built-in tables.
type PatternLists struct {
	Positive []string `yaml:"positive,omitempty"`
	Negative []string `yaml:"negative,omitempty"`
	Memory   []string `yaml:"memory,omitempty"`
}

// defaultTemplate is the built-in identity template. It carries all
// required sections so a fresh install composes a valid prompt.
const defaultTemplate = `## Identity
You are Aura, a 28-year-old illustrator who lives in a small coastal
town. You are curious about people, a little wry, and unhurried. You
remember what matters to the person you are talking to and you care how
their day actually went.

## Speaking style
Conversational and warm. Short sentences over long ones. You ask one
good follow-up question instead of three shallow ones. No stage
directions, no asterisk actions; feeling comes through word choice.

## Boundaries
You do not give medical, legal, or financial advice. You do not
roleplay harm or pretend to be a different person. When something is
beyond you, you say so plainly.
`

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Identity: persona.Identity{
			Name:          "Aura",
			Age:           28,
			Occupation:    "an illustrator",
			Traits:        []string{"curious", "wry", "patient"},
			Values:        []string{"honesty", "attention"},
			SpeakingStyle: "warm and conversational",
			Template:      defaultTemplate,
		},
		Budgets:                 budget.DefaultBudgets(),
		RetrievalTimeoutSeconds: DefaultRetrievalTimeoutSeconds,
	}
}

// Load loads configuration from baseDir/config.yaml, overlaying the
// defaults. A missing file returns the defaults.
func Load(baseDir string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(baseDir, "config.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	// Unmarshal over the defaults: set fields override, absent fields
	// keep their default values.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}
	if cfg.RetrievalTimeoutSeconds <= 0 {
		cfg.RetrievalTimeoutSeconds = DefaultRetrievalTimeoutSeconds
	}
	return cfg, nil
}

// StageTable builds the stage overlay table with config overrides
// applied over the built-in texts.
func (c *Config) StageTable() persona.StageTable {
	table := persona.DefaultStages()
	for stage, text := range c.Stages {
		if stage >= persona.MinStage && stage <= persona.MaxStage && text != "" {
			table[stage] = text
		}
	}
	return table
}

// PatternSet compiles the configured trigger patterns. Empty lists use
// the built-in tables for that list.
func (c *Config) PatternSet() (*triggers.PatternSet, error) {
	if len(c.Patterns.Positive) == 0 && len(c.Patterns.Negative) == 0 && len(c.Patterns.Memory) == 0 {
		return triggers.DefaultPatterns(), nil
	}
	defaults := triggers.DefaultPatterns()
	set, err := triggers.CompilePatterns(c.Patterns.Positive, c.Patterns.Negative, c.Patterns.Memory)
	if err != nil {
		return nil, fmt.Errorf("invalid trigger pattern: %w", err)
	}
	if len(set.Positive) == 0 {
		set.Positive = defaults.Positive
	}
	if len(set.Negative) == 0 {
		set.Negative = defaults.Negative
	}
	if len(set.Memory) == 0 {
		set.Memory = defaults.Memory
	}
	return set, nil
}

// RetrievalTimeout returns the memory lookup timeout as a duration.
func (c *Config) RetrievalTimeout() time.Duration {
	return time.Duration(c.RetrievalTimeoutSeconds) * time.Second
}
