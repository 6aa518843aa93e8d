// Package config loads pipeline configuration.
//
// Precedence, highest first: SENTIAL_* environment variables, an optional
// YAML file, embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed defaults.yaml
var defaultYAML []byte

const envPrefix = "SENTIAL_"

type Config struct {
	Bridge   BridgeConfig   `koanf:"bridge"`
	Resolver ResolverConfig `koanf:"resolver"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	LLM      LLMConfig      `koanf:"llm"`
	Cache    CacheConfig    `koanf:"cache"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type BridgeConfig struct {
	// BudgetBytes bounds the assembled bridge payload. Exceeding it after
	// symbol truncation is fatal to the scan.
	BudgetBytes       int `koanf:"budget_bytes"`
	MaxSymbolsPerFile int `koanf:"max_symbols_per_file"`
	ContextFileCap    int `koanf:"context_file_cap"`
}

type ResolverConfig struct {
	MaxIterations int `koanf:"max_iterations"`
	SourceFileCap int `koanf:"source_file_cap"`
}

type PipelineConfig struct {
	// Workers caps concurrent chapter resolution.
	Workers int `koanf:"workers"`
}

type LLMConfig struct {
	Model          string `koanf:"model"`
	BaseURL        string `koanf:"base_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Dir string `koanf:"dir"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load builds the configuration. path may be empty, in which case only the
// default location is consulted and a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	explicit := path != ""
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "sential", "config.yaml")
		}
	}
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// Default location is optional.
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// SENTIAL_LLM_MODEL -> llm.model, SENTIAL_BRIDGE_BUDGET_BYTES ->
	// bridge.budget_bytes. Top-level keys are single words, so only the
	// first underscore becomes a separator.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Bridge.BudgetBytes < 0 {
		return fmt.Errorf("bridge.budget_bytes must not be negative")
	}
	if c.Resolver.MaxIterations < 1 {
		return fmt.Errorf("resolver.max_iterations must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("llm.timeout_seconds must be at least 1")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// CacheDir resolves the cache directory, defaulting to ~/.sential/cache.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory for cache: %w", err)
	}
	return filepath.Join(home, ".sential", "cache"), nil
}
