package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"school_inventory_tool/config"
	"school_inventory_tool/observability"
)

var rootCmd = &cobra.Command{
	Use:   "school-inventory",
	Short: "School inventory backend: items, claims, returns and the request board",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	log, err := observability.NewLogger(cfg.Env, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
