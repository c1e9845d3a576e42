package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

var conditionsSelect []string

// conditionsCmd represents the conditions command
var conditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "List the prediction conditions",
	Long: `List the conditions a prediction can use, as served by the backend.

Up to four may be picked. Their weights follow the pick order: 40%, 30%, 20%
and 10%. Pass --select to preview the weights of a pick. The built-in list
of eight conditions is shown when the backend is unreachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		selector := internal.NewSelector()
		if err := selector.Set(conditionsSelect); err != nil {
			return err
		}

		var src internal.ConditionSource
		if client, err := newClient(); err != nil {
			internal.LogWarn("Cannot reach the backend: %v", err)
		} else {
			src = client
		}
		catalog, source := internal.ResolveConditions(cmd.Context(), src)
		warnIfOffline(source)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render("D-Logic conditions"))
		fmt.Fprintln(out, dateStyle.Render("source: "+source))
		fmt.Fprintln(out)
		fmt.Fprint(out, internal.RenderConditionCatalog(catalog, selector.Weights()))
		fmt.Fprintln(out)
		fmt.Fprintln(out, dateStyle.Render(fmt.Sprintf("Weights by priority: %d%% / %d%% / %d%% / %d%%",
			internal.PriorityWeights[0], internal.PriorityWeights[1], internal.PriorityWeights[2], internal.PriorityWeights[3])))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(conditionsCmd)
	conditionsCmd.Flags().StringArrayVarP(&conditionsSelect, "select", "s", nil, "Condition id in priority order (repeatable)")
}
