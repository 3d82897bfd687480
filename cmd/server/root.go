package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"activity-notes/internal/config"
	"activity-notes/internal/db"
	"activity-notes/internal/logger"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "activity-notes",
	Short: "Personal activity notes dashboard",
	Long: `Activity Notes keeps short personal notes, classifies them by urgency
and shows them on a dashboard filtered by the categories you follow.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
}

// bootstrap loads the config and builds the logger every subcommand needs.
func bootstrap() (config.Config, *logger.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("Failed to load config", err)
	}
	log, err := logger.New(cfg.LogMode, logger.Options{Redact: cfg.LogRedact, HashSalt: cfg.LogHashSalt})
	if err != nil {
		fatal("Failed to build logger", err)
	}
	return cfg, log
}

func openDB(ctx context.Context, cfg config.Config, log *logger.Logger) (*db.DB, error) {
	if cfg.DBDriver == db.DriverSQLite || cfg.DBDriver == "" {
		if dir := filepath.Dir(cfg.DBDSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}
	return db.New(ctx, cfg.DBDriver, cfg.DBDSN, log)
}
