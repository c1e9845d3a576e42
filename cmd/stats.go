package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show D-Logic database statistics",
	Long: `Show how many records, horses and races the D-Logic database holds.

Resolved the same way as 'dlogic races': fresh cache, backend, stale cache,
then built-in figures.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newResolver()
		if err != nil {
			return err
		}

		var stats *internal.DatabaseStatsResponse
		_ = internal.ShowProgress(cmd.Context(), "Loading database statistics", func() error {
			stats = resolver.DatabaseStats(cmd.Context())
			return nil
		})
		warnIfOffline(stats.Source)
		fmt.Fprint(cmd.OutOrStdout(), internal.RenderStats(stats))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore fresh cache entries")
}
