// Package main implements the concierge service and its maintenance CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"concierge/internal/config"
	appLog "concierge/internal/log"
	"concierge/internal/store"
)

const version = "0.1.0"

func main() {
	defer appLog.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:           "concierge",
	Short:         "Household concierge: briefing, requests, calendar and contacts",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to config file")
}

// loadConfig reads the config file plus environment overrides and applies
// the configured log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		if cfg == nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		// The defaults are still usable when the first-run save fails.
		appLog.Warn("could not write default config", "config_path", configPath, "error", err.Error())
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.DataPath, store.WithLocation(cfg.Location()))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DataPath, err)
	}
	return st, nil
}
