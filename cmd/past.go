package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

// pastCmd groups the past race commands
var pastCmd = &cobra.Command{
	Use:   "past",
	Short: "Browse finished races and how D-Logic scored them",
}

var pastListCmd = &cobra.Command{
	Use:   "list",
	Short: "List finished races",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		var list *internal.PastRaceList
		err = internal.ShowProgress(cmd.Context(), "Loading past races", func() error {
			var err error
			list, err = client.PastRaces(cmd.Context())
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to load past races: %w", err)
		}
		if len(list.Races) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No past races found.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), internal.RenderPastRaces(list))
		return nil
	},
}

var pastShowCmd = &cobra.Command{
	Use:   "show <race-id>",
	Short: "Show the runners of a finished race",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		var detail *internal.PastRaceDetail
		err = internal.ShowProgress(cmd.Context(), "Loading race "+args[0], func() error {
			var err error
			detail, err = client.PastRace(cmd.Context(), args[0])
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to load race %s: %w", args[0], err)
		}
		fmt.Fprint(cmd.OutOrStdout(), internal.RenderPastRaceHorses(detail.RaceInfo, detail.Horses))
		return nil
	},
}

var pastAnalyzeCmd = &cobra.Command{
	Use:   "analyze <race-id>",
	Short: "Compare the D-Logic ranking with the actual result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		var analysis *internal.PastRaceAnalysis
		err = internal.ShowProgress(cmd.Context(), "Analyzing race "+args[0], func() error {
			var err error
			analysis, err = client.AnalyzePastRace(cmd.Context(), args[0])
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to analyze race %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, internal.RenderPastRaceHorses(analysis.RaceInfo, analysis.Horses))
		fmt.Fprintln(out)
		fmt.Fprint(out, internal.RenderAnalysis(analysis.Analysis))
		return nil
	},
}

func newClient() (*internal.APIClient, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	return env.client()
}

func init() {
	rootCmd.AddCommand(pastCmd)
	pastCmd.AddCommand(pastListCmd)
	pastCmd.AddCommand(pastShowCmd)
	pastCmd.AddCommand(pastAnalyzeCmd)
}
