package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bbb-collector",
	Short: "Batched BBB directory collection through hosted browser sessions",
	Long:  "Crawls BBB search result pages, deduplicates business profiles, and extracts contact details in batches of hosted browser sessions using a language model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
