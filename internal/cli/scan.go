package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/bridge"
	"github.com/sential-dev/sential/internal/discover"
	"github.com/sential-dev/sential/internal/orchestrate"
	"github.com/sential-dev/sential/internal/symbols"
)

func RunScan(cmd *cobra.Command, args []string) error {
	cfg, log, err := Setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	rootPath, err := ResolveRepoRoot(args)
	if err != nil {
		return err
	}

	langFlag, err := cmd.Flags().GetString("language")
	if err != nil {
		return fmt.Errorf("failed to read --language flag: %w", err)
	}
	var language discover.Language
	if langFlag != "" {
		language, err = discover.ParseLanguage(langFlag)
		if err != nil {
			return err
		}
	} else {
		language, err = discover.DetectLanguage(rootPath)
		if err != nil {
			return err
		}
		log.Info("language detected", zap.String("language", string(language)))
	}

	modules, err := cmd.Flags().GetStringSlice("module")
	if err != nil {
		return fmt.Errorf("failed to read --module flag: %w", err)
	}
	outPath, err := PathFlag(cmd, "out", rootPath, bridgeFileName)
	if err != nil {
		return err
	}

	orch := orchestrate.New(cfg, nil, nil, symbols.NewTreeSitter(log), log)
	b, err := orch.Scan(cmd.Context(), orchestrate.ScanOptions{
		Root:     rootPath,
		Language: language,
		Modules:  modules,
	})
	if err != nil {
		return err
	}

	if err := bridge.WriteFile(outPath, b); err != nil {
		return fmt.Errorf("failed to write bridge payload: %w", err)
	}
	rel, relErr := filepath.Rel(rootPath, outPath)
	if relErr != nil {
		rel = outPath
	}
	fmt.Fprintf(os.Stdout, "scan: %d source files, %d context files -> %s\n", len(b.Files), len(b.Context), rel)
	return nil
}
