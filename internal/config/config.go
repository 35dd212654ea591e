// Package config loads codesmith configuration from YAML with environment
// variable overrides. Configuration is optional; every field has a usable
// default so the CLI works with nothing but an API key in the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Model ModelConfig `yaml:"model"`
	Retry RetryConfig `yaml:"retry"`
	Store StoreConfig `yaml:"store"`
	Index IndexConfig `yaml:"index"`
}

// ModelConfig selects the upstream model.
type ModelConfig struct {
	// Name is the model identifier sent to the API.
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. Usually left empty in
	// the file and supplied via GEMINI_API_KEY or CODESMITH_API_KEY.
	APIKey string `yaml:"api_key"`
}

// RetryConfig controls backoff for upstream failures.
type RetryConfig struct {
	// MaxAttempts bounds tries per model call, first attempt included.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Multiplier scales the delay after each retry.
	Multiplier float64 `yaml:"multiplier"`
}

// StoreConfig locates the task state database.
type StoreConfig struct {
	// Path to the SQLite database file. Defaults under the user config dir.
	Path string `yaml:"path"`
}

// IndexConfig tunes the context index.
type IndexConfig struct {
	// ChunkLines is the number of lines per indexed chunk.
	ChunkLines int `yaml:"chunk_lines"`

	// OverlapLines is how many lines consecutive chunks share.
	OverlapLines int `yaml:"overlap_lines"`

	// Workers bounds concurrent file reads during indexing.
	Workers int `yaml:"workers"`

	// MaxResults is the retrieval cutoff for a query.
	MaxResults int `yaml:"max_results"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name: "gemini-2.5-flash",
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			Multiplier:   1.5,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Index: IndexConfig{
			ChunkLines:   40,
			OverlapLines: 8,
			Workers:      8,
			MaxResults:   12,
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codesmith", "config.yaml")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "codesmith.db"
	}
	return filepath.Join(home, ".codesmith", "tasks.db")
}

// applyEnv overlays CODESMITH_* (and provider-conventional) variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CODESMITH_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("CODESMITH_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if c.Model.APIKey == "" {
		c.Model.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if v := os.Getenv("CODESMITH_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CODESMITH_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("CODESMITH_RETRY_INITIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.InitialDelay = d
		}
	}
}

func (c *Config) validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1.0 {
		return fmt.Errorf("retry.multiplier must be >= 1.0, got %g", c.Retry.Multiplier)
	}
	if c.Index.ChunkLines < 1 {
		return fmt.Errorf("index.chunk_lines must be >= 1, got %d", c.Index.ChunkLines)
	}
	if c.Index.OverlapLines >= c.Index.ChunkLines {
		return fmt.Errorf("index.overlap_lines must be smaller than chunk_lines")
	}
	return nil
}
