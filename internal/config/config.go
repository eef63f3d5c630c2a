// Package config loads guardian configuration from YAML with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all guardian configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM      LLMConfig      `yaml:"llm"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the reasoning providers.
type LLMConfig struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	AnthropicURL    string `yaml:"anthropic_url"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`
	Timeout         string `yaml:"timeout"`
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// PipelineConfig configures the assessment pipeline.
type PipelineConfig struct {
	// EnableClassifier turns the multi-stage classification chain on.
	EnableClassifier bool `yaml:"enable_classifier"`
	// MaxContacts caps notification plans regardless of strategy.
	MaxContacts int    `yaml:"max_contacts"`
	TimeContext string `yaml:"time_context"`
}

// LoggingConfig configures logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "guardian",
		Version: "0.1.0",
		LLM: LLMConfig{
			AnthropicModel: "claude-sonnet-4-20250514",
			AnthropicURL:   "https://api.anthropic.com/v1",
			GeminiModel:    "gemini-2.0-flash",
			Timeout:        "60s",
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(".guardian", "guardian.db"),
		},
		Pipeline: PipelineConfig{
			EnableClassifier: false,
			MaxContacts:      3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. API keys
// belong in the environment, not on disk.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.AnthropicAPIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiAPIKey = key
	}
	if path := os.Getenv("GUARDIAN_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
}

// LLMTimeout returns the provider timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
