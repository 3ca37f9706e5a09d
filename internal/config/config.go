// Package config defines the runtime configuration structure.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for rewind.
type Config struct {
	Simulation SimulationSection `yaml:"simulation"`
	Journal    JournalSection    `yaml:"journal"`
	Log        LogSection        `yaml:"log"`
}

// SimulationSection configures the reconciliation core.
type SimulationSection struct {
	// Frames is the history depth in ticks. It bounds both the rewind
	// horizon and input retention.
	Frames int `yaml:"frames"`

	// TickRate is the simulation rate in ticks per second.
	TickRate int `yaml:"tick_rate"`

	// RepeatHorizon is how many ticks past the last known input the queue
	// keeps repeating it before substituting the fallback.
	RepeatHorizon int `yaml:"repeat_horizon"`
}

// JournalSection configures the reconciliation journal.
type JournalSection struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogSection configures logging output.
type LogSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML configuration file, layered over defaults. Unknown keys
// are rejected so typos fail loudly instead of silently falling back.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, layered over defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
