package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/config"
)

var cfg *config.Config

// modeAnnotation names the config.Validate mode a command needs.
const modeAnnotation = "config_mode"

var rootCmd = &cobra.Command{
	Use:          "dealmachine",
	Short:        "Rental property deal analyzer",
	Long:         "Extracts listing fields from MLS sheets (PDF or text), merges them with defaults and manual edits, and projects income, expense and financing metrics with gradient scores.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if mode := cmd.Annotations[modeAnnotation]; mode != "" {
			if err := cfg.Validate(mode); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func withMode(mode string) map[string]string {
	return map[string]string{modeAnnotation: mode}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
