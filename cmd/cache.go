package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

// cacheCmd groups the response cache commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the response cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cached responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache: %s\n", cache.GetCacheDir())
		if !cache.IsCacheValid() {
			fmt.Fprintln(out, "No cached responses.")
			return nil
		}
		index, err := cache.LoadIndex()
		if err != nil {
			return err
		}
		now := time.Now()
		for _, e := range index.Entries {
			fmt.Fprintf(out, "  %-16s %8s  %s\n", e.Key, humanize.Bytes(uint64(e.Size)),
				dateStyle.Render(humanize.RelTime(e.StoredAt, now, "ago", "from now")))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		if err := cache.ClearCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Cache cleared"))
		return nil
	},
}

func openCache() (*internal.CacheManager, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	cache := env.cache()
	if cache == nil {
		return nil, fmt.Errorf("cache is disabled (cache.enabled: false)")
	}
	return cache, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
