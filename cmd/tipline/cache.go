package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tipline/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the query result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cache entries",
	RunE:  runCacheClear,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	RunE:  runCacheCleanup,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache opens just the cache directory, without touching the database
func openCache() (*cache.Cache, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	defer a.close()
	return cache.New(a.cfg.CacheDir(), a.logger)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	qc, err := openCache()
	if err != nil {
		return err
	}

	stats, err := qc.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Entries: %d\n", stats.Entries)
	fmt.Printf("Size:    %d bytes\n", stats.SizeBytes)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	qc, err := openCache()
	if err != nil {
		return err
	}

	if err := qc.Clear(); err != nil {
		return err
	}
	fmt.Println("Cache cleared")
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	qc, err := openCache()
	if err != nil {
		return err
	}

	removed, err := qc.CleanupExpired()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d expired entries\n", removed)
	return nil
}
