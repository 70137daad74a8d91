package main

import (
	"os"

	"github.com/spf13/cobra"

	"tipline/internal/version"
)

var (
	// dirFlag is the CLI --dir flag value
	dirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "tipline",
	Short: "tipline - tip and report submission backend",
	Long: `tipline is the data layer and HTTP backend of a tip/report submission tool.
It manages the report database, a file-based query result cache, reviewer
accounts, and an optional query debugging console.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("tipline version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "",
		"Data directory (default: current directory, or TIPLINE_DIR)")
}

// resolveDataDir determines the data directory.
// Precedence: CLI flag > TIPLINE_DIR env var > current directory
func resolveDataDir() string {
	if dirFlag != "" {
		return dirFlag
	}
	if env := os.Getenv("TIPLINE_DIR"); env != "" {
		return env
	}
	return "."
}
