package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 800_000, cfg.Bridge.BudgetBytes)
	assert.Equal(t, 64, cfg.Bridge.MaxSymbolsPerFile)
	assert.Equal(t, 3, cfg.Resolver.MaxIterations)
	assert.Equal(t, 50_000, cfg.Resolver.SourceFileCap)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 8\nllm:\n  model: gpt-4o\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Resolver.MaxIterations)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SENTIAL_LLM_MODEL", "gpt-4.1")
	t.Setenv("SENTIAL_PIPELINE_WORKERS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero workers", "pipeline:\n  workers: 0\n"},
		{"zero iterations", "resolver:\n  max_iterations: 0\n"},
		{"bad log format", "logging:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestCacheDir(t *testing.T) {
	cfg := &Config{Cache: CacheConfig{Dir: "/tmp/custom"}}
	dir, err := cfg.CacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom", dir)

	cfg = &Config{}
	dir, err = cfg.CacheDir()
	require.NoError(t, err)
	assert.Contains(t, dir, filepath.Join(".sential", "cache"))
}
