package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/bridge"
	"github.com/sential-dev/sential/internal/cache"
	"github.com/sential-dev/sential/internal/config"
	"github.com/sential-dev/sential/internal/fileutil"
	"github.com/sential-dev/sential/internal/llm"
	"github.com/sential-dev/sential/internal/orchestrate"
	"github.com/sential-dev/sential/internal/symbols"
)

func RunGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, err := Setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	rootPath, err := ResolveRepoRoot(args)
	if err != nil {
		return err
	}
	bridgePath, err := PathFlag(cmd, "bridge", rootPath, bridgeFileName)
	if err != nil {
		return err
	}
	outPath, err := PathFlag(cmd, "out", rootPath, guideFileName)
	if err != nil {
		return err
	}
	chapters, err := cmd.Flags().GetStringSlice("chapter")
	if err != nil {
		return fmt.Errorf("failed to read --chapter flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to read --no-cache flag: %w", err)
	}
	if workers, err := cmd.Flags().GetInt("workers"); err == nil && workers > 0 {
		cfg.Pipeline.Workers = workers
	}

	b, err := bridge.ReadFile(bridgePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no bridge payload at %q; run 'sential scan' first", bridgePath)
		}
		return fmt.Errorf("failed to read bridge payload: %w", err)
	}

	store, err := openStore(cfg, noCache, log)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	client, err := llm.NewOpenAI(llm.OpenAIConfig{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout(),
	}, log)
	if err != nil {
		return err
	}

	opts := orchestrate.GenerateOptions{Root: rootPath, Only: chapters}
	if len(chapters) > 0 {
		prior, err := os.ReadFile(outPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read existing guide: %w", err)
		}
		opts.PriorArtifact = string(prior)
	}

	orch := orchestrate.New(cfg, store, client, symbols.NewTreeSitter(log), log)
	doc, result, err := orch.Generate(cmd.Context(), b, opts)
	if err != nil {
		return err
	}

	if _, err := fileutil.WriteIfChanged(outPath, []byte(doc)); err != nil {
		return fmt.Errorf("failed to write guide: %w", err)
	}
	fmt.Fprintf(os.Stdout, "generate: %d chapters (%d failed) -> %s\n",
		len(result.Chapters), result.Failed, outPath)
	if result.Failed > 0 {
		return fmt.Errorf("%d chapter(s) failed; see log output and placeholder sections", result.Failed)
	}
	return nil
}

func openStore(cfg *config.Config, noCache bool, log *zap.Logger) (*cache.Store, error) {
	if noCache {
		return cache.OpenInMemory(log)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	return cache.Open(dir, log)
}
