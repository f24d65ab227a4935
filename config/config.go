// Package config provides YAML-based configuration for AssetMesh. Every
// magic constant of the scoring and escalation protocol lives here as a
// named, overridable field with the original values as defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/assetmesh/core"
)

// BusConfig bounds the Break Room retention. Oldest entries are trimmed
// FIFO once a cap is exceeded.
type BusConfig struct {
	Name            string `yaml:"name"`
	MaxMessages     int    `yaml:"max_messages"`
	MaxKnowledge    int    `yaml:"max_knowledge"`
	MaxObservations int    `yaml:"max_observations"`
}

// ProviderConfig selects the optional reasoning backend. An empty kind means
// rule-based reasoning only, which is a supported configuration.
type ProviderConfig struct {
	Kind        string  `yaml:"kind"` // "", "anthropic", "openai", "mock"
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// CoordinatorConfig carries the escalation and conflict-detection windows.
type CoordinatorConfig struct {
	// EscalationWindow deduplicates escalations of the same observation id.
	EscalationWindow time.Duration `yaml:"escalation_window"`
	// ConflictWindow bounds how far back opposing-sentiment messages are
	// matched for conflict detection.
	ConflictWindow time.Duration `yaml:"conflict_window"`
}

// Config is the top-level AssetMesh configuration, loaded from YAML.
type Config struct {
	Bus              BusConfig             `yaml:"bus"`
	Provider         ProviderConfig        `yaml:"provider"`
	Coordinator      CoordinatorConfig     `yaml:"coordinator"`
	HealthWeights    core.HealthWeights    `yaml:"health_weights"`
	HealthThresholds core.HealthThresholds `yaml:"health_thresholds"`
	// SentimentThreshold is the normalized score beyond which a summary is
	// labeled concerning (negative) or positive.
	SentimentThreshold float64 `yaml:"sentiment_threshold"`
	// AutoRespond lets agents answer questions heard on the bus.
	AutoRespond bool `yaml:"auto_respond"`
	// PostLimit caps weakness observations posted to the bus per agent pass.
	PostLimit int `yaml:"post_limit"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the standard configuration mirroring the original
// protocol constants.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Name:            "break-room",
			MaxMessages:     500,
			MaxKnowledge:    200,
			MaxObservations: 200,
		},
		Provider: ProviderConfig{
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Coordinator: CoordinatorConfig{
			EscalationWindow: time.Hour,
			ConflictWindow:   time.Hour,
		},
		HealthWeights:      core.DefaultHealthWeights(),
		HealthThresholds:   core.DefaultHealthThresholds(),
		SentimentThreshold: 0.3,
		AutoRespond:        true,
		PostLimit:          3,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads a YAML config file from path, applies it over the defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would disable retention or produce
// unbounded scores.
func (c *Config) Validate() error {
	if c.Bus.MaxMessages <= 0 {
		return fmt.Errorf("bus.max_messages must be positive, got %d", c.Bus.MaxMessages)
	}
	if c.Bus.MaxKnowledge <= 0 {
		return fmt.Errorf("bus.max_knowledge must be positive, got %d", c.Bus.MaxKnowledge)
	}
	if c.Bus.MaxObservations <= 0 {
		return fmt.Errorf("bus.max_observations must be positive, got %d", c.Bus.MaxObservations)
	}
	if c.Coordinator.EscalationWindow <= 0 {
		return fmt.Errorf("coordinator.escalation_window must be positive")
	}
	if c.SentimentThreshold <= 0 || c.SentimentThreshold >= 1 {
		return fmt.Errorf("sentiment_threshold must be in (0,1), got %v", c.SentimentThreshold)
	}
	switch c.Provider.Kind {
	case "", "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("unknown provider kind %q", c.Provider.Kind)
	}
	return nil
}
