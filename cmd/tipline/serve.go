package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tipline/internal/api"
	"tipline/internal/console"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the tipline HTTP server: report submission and review endpoints,
reference data, sessions, and (when enabled) the query debugging console.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
	serveCmd.Flags().Bool("debug-console", false, "Enable the query console regardless of config")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Fail now rather than on the first request
	if err := a.db.Connect(); err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}

	debugEnabled := a.cfg.Debug.Enabled
	if flagOn, _ := cmd.Flags().GetBool("debug-console"); flagOn {
		debugEnabled = true
	}

	var profiler *console.Profiler
	if debugEnabled {
		profiler = console.NewProfiler(a.cfg.Debug.ConsoleSize)
		a.db.SetRecorder(profiler)
		a.logger.Info("Query console enabled", map[string]any{
			"size": a.cfg.Debug.ConsoleSize,
		})
	}

	server := api.NewServer(api.Options{
		Config:   a.cfg,
		Store:    a.store,
		AuthMgr:  a.authMgr,
		Catalog:  a.catalog,
		Profiler: profiler,
		Logger:   a.logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
