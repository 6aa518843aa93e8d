package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/config"
	"github.com/sential-dev/sential/internal/logging"
)

// bridgeFileName is the default bridge payload location, relative to the
// repository root.
const bridgeFileName = ".sential/bridge.jsonl"

const guideFileName = "ONBOARDING.md"

// Setup loads configuration and builds the logger shared by all commands.
func Setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read --config flag: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if override, err := cmd.Flags().GetString("log-level"); err == nil && override != "" {
		level = override
	}
	log, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// ResolveRepoRoot turns the optional positional path argument into an
// absolute directory path.
func ResolveRepoRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	rootPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return "", fmt.Errorf("failed to access path %q: %w", rootPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path %q is not a directory", rootPath)
	}
	return rootPath, nil
}

// PathFlag returns the flag value when set, else fallback joined under root.
func PathFlag(cmd *cobra.Command, name, root, fallback string) (string, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	if value != "" {
		return value, nil
	}
	return filepath.Join(root, fallback), nil
}
