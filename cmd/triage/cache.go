package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache inspection commands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss statistics",
	Long: `Show the engine cache counters. The cache is per-process, so this
reports the counters of the current invocation only; it is mostly useful
when triage is embedded as a long-running service.`,
	Run: func(cmd *cobra.Command, args []string) {
		eng := mustEngine()
		defer eng.Close()

		stats := eng.CacheStats()
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Cache Statistics ==="))
		fmt.Printf("Hits:        %d\n", stats.Hits)
		fmt.Printf("Misses:      %d\n", stats.Misses)
		fmt.Printf("Populates:   %d\n", stats.Populates)
		fmt.Printf("Failures:    %d\n", stats.Failures)
		fmt.Printf("Evictions:   %d\n", stats.Evictions)
		fmt.Printf("Expirations: %d\n", stats.Expirations)
		fmt.Printf("Hit rate:    %.1f%%\n", stats.HitRate()*100)
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
