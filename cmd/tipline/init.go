package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tipline/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the data directory",
	Long: `Create the .tipline directory with a default config file and an empty
database. Safe to run on an existing directory; existing config is kept.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := resolveDataDir()

	cfg, err := config.LoadConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Save(dataDir); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Force the lazy connection so the schema is created now
	if err := a.db.Connect(); err != nil {
		return err
	}

	fmt.Printf("Initialized tipline data directory at %s\n", dataDir)
	fmt.Printf("Database: %s\n", cfg.DatabasePath())
	return nil
}
