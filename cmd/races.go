package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

var (
	refresh  bool
	racesRaw bool
)

// racesCmd represents the races command
var racesCmd = &cobra.Command{
	Use:   "races",
	Short: "Show today's races",
	Long: `Show today's race card grouped by racecourse.

A fresh cached card is used when available. Otherwise the backend is asked,
falling back to an older cached card and finally to a built-in card, so this
command works offline. Use --refresh to skip the fresh cache.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newResolver()
		if err != nil {
			return err
		}

		var races *internal.TodayRaces
		_ = internal.ShowProgress(cmd.Context(), "Loading today's races", func() error {
			races = resolver.TodayRaces(cmd.Context())
			return nil
		})

		warnIfOffline(races.Source)

		if racesRaw {
			data, err := sonic.ConfigStd.MarshalIndent(races, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal races: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), internal.RenderTodayRaces(races))
		return nil
	},
}

// newResolver builds the cache-backed resolver for races and statistics
func newResolver() (*internal.FallbackResolver, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	client, err := env.client()
	if err != nil {
		return nil, err
	}
	resolver := internal.NewFallbackResolver(client, env.cache())
	resolver.SetRefresh(refresh)
	return resolver, nil
}

// warnIfOffline tells the user when data did not come from the backend
func warnIfOffline(source string) {
	switch source {
	case internal.SourceStaleCache:
		internal.PrintWarning("Backend unavailable, showing previously cached data")
	case internal.SourceFallback:
		internal.PrintWarning("Backend unavailable, showing built-in data")
	}
}

func init() {
	rootCmd.AddCommand(racesCmd)
	racesCmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore fresh cache entries")
	racesCmd.Flags().BoolVar(&racesRaw, "json", false, "Print the race card as JSON")
}
