// Package config holds all telepath configuration: oracle provider settings,
// engine thresholds, dataset location, and logging controls. Configuration is
// YAML on disk with environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all telepath configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Oracle (LLM) configuration
	Oracle OracleConfig `yaml:"oracle"`

	// Inference engine thresholds
	Engine EngineConfig `yaml:"engine"`

	// Subject dataset
	Dataset DatasetConfig `yaml:"dataset"`

	// Encyclopedia lookup for guess validation
	Lookup LookupConfig `yaml:"lookup"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the external question/guess proposer.
type OracleConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // OpenAI-compatible endpoints only
	Timeout  string `yaml:"timeout"`
}

// DatasetConfig configures the subject catalogue.
type DatasetConfig struct {
	// DatabasePath is the SQLite catalogue; empty means embedded seed only.
	DatabasePath string `yaml:"database_path"`
}

// LookupConfig configures the best-effort encyclopedia lookup used by the
// guess validator.
type LookupConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`

	// MaxConcurrent bounds parallel lookups within one turn.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "telepath",
		Version: "1.0.0",
		Oracle: OracleConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "30s",
		},
		Engine:  DefaultEngineConfig(),
		Dataset: DatasetConfig{},
		Lookup: LookupConfig{
			Enabled:       true,
			BaseURL:       "https://en.wikipedia.org/api/rest_v1/page/summary",
			Timeout:       "10s",
			MaxConcurrent: 4,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// DefaultConfigPath returns ~/.telepath/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".telepath", "config.yaml")
	}
	return filepath.Join(home, ".telepath", "config.yaml")
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
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

// Save writes configuration to a YAML file, creating the directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// API keys take priority over the file so secrets stay out of YAML.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
		if c.Oracle.Provider == "" {
			c.Oracle.Provider = "gemini"
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Oracle.APIKey == "" {
		c.Oracle.APIKey = key
		c.Oracle.Provider = "openai"
	}
	if path := os.Getenv("TELEPATH_DB"); path != "" {
		c.Dataset.DatabasePath = path
	}
	if url := os.Getenv("TELEPATH_LOOKUP_URL"); url != "" {
		c.Lookup.BaseURL = url
	}
}

// GetOracleTimeout returns the oracle round-trip timeout as a duration.
func (c *Config) GetOracleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetLookupTimeout returns the encyclopedia lookup timeout as a duration.
func (c *Config) GetLookupTimeout() time.Duration {
	d, err := time.ParseDuration(c.Lookup.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case "gemini", "openai", "mock", "":
	default:
		return fmt.Errorf("unknown oracle provider: %q", c.Oracle.Provider)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if c.Lookup.MaxConcurrent < 0 {
		return fmt.Errorf("lookup.max_concurrent must be >= 0")
	}
	return nil
}
