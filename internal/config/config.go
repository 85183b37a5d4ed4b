// Package config holds the engine's YAML-backed configuration, following
// the teacher's internal/config layering (default struct, then file
// overlay, then environment overrides).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cortexmcp/internal/logging"
	"cortexmcp/internal/store"
)

// DefaultConfigPath is where config.yaml lives relative to the workspace
// root (SPEC_FULL.md Configuration).
const DefaultConfigPath = ".ai/brain-data/config.yaml"

// Config is the full set of runtime-tunable knobs (SPEC_FULL.md
// Configuration section).
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Limits    LimitsConfig    `yaml:"limits"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig overrides the database path.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// EmbeddingConfig selects the embedder implementation.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "remote" or "" (hash fallback)
	Endpoint   string `yaml:"endpoint"`
	Dimensions int    `yaml:"dimensions"`
}

// LimitsConfig carries the resource bounds from spec.md §5. The RPC
// adapter enforces the three call caps; ActiveItemCap is loaded but not
// passed to the aging engine, which uses its built-in cap of 500.
type LimitsConfig struct {
	ActiveItemCap     int `yaml:"active_item_cap"`
	MaxStoreCalls     int `yaml:"max_store_calls"`
	MaxAutoLearnCalls int `yaml:"max_auto_learn_calls"`
	MaxTotalCalls     int `yaml:"max_total_calls"`
}

// RetrievalConfig holds cache and synonym-file settings. retriever.New does
// not take them: the retriever always uses its built-in 50-entry, 60-second
// cache and the fixed synonym map.
type RetrievalConfig struct {
	CacheSize       int    `yaml:"cache_size"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	SynonymFile     string `yaml:"synonym_file"`
}

// LoggingConfig records the debug toggle, set from the config file or by
// CORTEX_DEBUG=1. logging.Initialize reads only the environment variable,
// so debug: true in the config file does not turn on file logging.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration (spec.md §4.1, §5).
func Default() *Config {
	return &Config{
		Storage: StorageConfig{DBPath: store.DefaultDBPath},
		Embedding: EmbeddingConfig{
			Provider:   "",
			Dimensions: 384,
		},
		Limits: LimitsConfig{
			ActiveItemCap:     500,
			MaxStoreCalls:     30,
			MaxAutoLearnCalls: 100,
			MaxTotalCalls:     500,
		},
		Retrieval: RetrievalConfig{
			CacheSize:       50,
			CacheTTLSeconds: 60,
		},
	}
}

// Load reads path, overlays it onto Default(), and applies environment
// overrides. A missing file is not an error: the defaults are returned
// as-is (spec.md's config is entirely optional).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryBoot).Info("config file not found at %s, using defaults", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg to path as YAML, creating any missing parent directory.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides reads CORTEX_DEBUG directly, matching the teacher's
// flag/env precedence (spec.md §6 Environment).
func (c *Config) applyEnvOverrides() {
	if os.Getenv("CORTEX_DEBUG") == "1" {
		c.Logging.Debug = true
	}
}
