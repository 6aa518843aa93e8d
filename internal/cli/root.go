package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sential",
		Short: "Synthesize onboarding guides from source repositories",
		Long: `Sential studies a repository and writes an onboarding guide for it.

'sential scan' inventories the repository, extracts its symbol outline,
and saves a compact bridge payload. 'sential generate' plans a chapter
syllabus over that payload and synthesizes each chapter from the source
files it actually needs, iterating until the chapter's file set settles.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/sential/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level: debug|info|warn|error")

	scanCmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Inventory a repository and write the bridge payload",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunScan,
	}
	scanCmd.Flags().StringP("language", "l", "", "Primary language (default: auto-detect)")
	scanCmd.Flags().StringSliceP("module", "m", nil, "Restrict scan to the named modules")
	scanCmd.Flags().StringP("out", "o", "", "Bridge output path (default: <path>/.sential/bridge.jsonl)")

	generateCmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Plan a syllabus and synthesize the onboarding guide",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunGenerate,
	}
	generateCmd.Flags().StringP("bridge", "b", "", "Bridge payload path (default: <path>/.sential/bridge.jsonl)")
	generateCmd.Flags().StringP("out", "o", "", "Guide output path (default: <path>/ONBOARDING.md)")
	generateCmd.Flags().StringSlice("chapter", nil, "Regenerate only the named chapters, keep the rest")
	generateCmd.Flags().Bool("no-cache", false, "Run with a throwaway in-memory cache")
	generateCmd.Flags().Int("workers", 0, "Override concurrent chapter resolution limit")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sential %s\n", version)
		},
	}

	rootCmd.AddCommand(
		scanCmd,
		generateCmd,
		versionCmd,
	)

	return rootCmd
}
