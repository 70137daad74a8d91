package main

import (
	"os"

	"tipline/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := logging.NewLogger(logging.Config{
			Format: logging.HumanFormat,
			Level:  logging.InfoLevel,
		})
		logger.Error("Command execution failed", map[string]any{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
