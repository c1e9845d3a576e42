package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

var (
	predictConditions []string
	predictMinPicks   int
	predictJSON       bool
)

const pickDone = "(done)"

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict <race-id>",
	Short: "Score a race under weighted conditions",
	Long: `Request a D-Logic prediction for a race.

Conditions are given in priority order and weighted 40/30/20/10:

  dlogic predict 202412010611 \
    --condition 3_distance_category --condition 1_running_style \
    --condition 7_track_condition --condition 5_course_specific

Without --condition an interactive picker asks for them one at a time.
Use 'dlogic conditions' to list the available ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raceID := args[0]
		if predictMinPicks < 1 || predictMinPicks > internal.MaxConditions {
			return &internal.ValidationError{Field: "min-conditions", Reason: fmt.Sprintf("must be between 1 and %d", internal.MaxConditions)}
		}

		selector := internal.NewSelector(internal.WithMinPicks(predictMinPicks))
		conditions := predictConditions
		if len(conditions) == 0 {
			if !internal.IsTerminal(os.Stdin) {
				return &internal.ValidationError{Field: "conditions", Reason: "none given, use --condition"}
			}
			picked, err := pickConditions(predictMinPicks)
			if err != nil {
				return err
			}
			conditions = picked
		}
		if err := selector.Set(conditions); err != nil {
			return err
		}
		if !selector.CanSubmit() {
			return fmt.Errorf("%w: %d of %d conditions selected", internal.ErrNotReady, len(conditions), predictMinPicks)
		}

		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		return env.guard().Run(cmd.Context(), func(*internal.UserSession) error {
			session, closeHistory, err := openChatSession(cmd.Context(), env, selector, "")
			if err != nil {
				return err
			}
			defer closeHistory()

			var msg internal.Message
			err = internal.ShowProgress(cmd.Context(), "Calculating D-Logic scores", func() error {
				var predictErr error
				msg, predictErr = session.Predict(cmd.Context(), raceID)
				return predictErr
			})
			out := cmd.OutOrStdout()
			if err != nil {
				if msg.Content != "" {
					fmt.Fprintln(out, msg.Content)
				}
				return err
			}

			if predictJSON {
				data, err := sonic.ConfigStd.MarshalIndent(msg.Prediction, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal prediction: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprint(out, internal.RenderPrediction(msg.Prediction))
			return nil
		})
	},
}

// pickConditions asks for conditions one priority at a time
func pickConditions(minPicks int) ([]string, error) {
	var picked []string
	for len(picked) < internal.MaxConditions {
		options := []string{}
		if len(picked) >= minPicks {
			options = append(options, pickDone)
		}
		byLabel := make(map[string]string)
		for _, c := range internal.Catalog {
			if contains(picked, c.ID) {
				continue
			}
			label := fmt.Sprintf("%s (%s)", c.Name, c.ID)
			byLabel[label] = c.ID
			options = append(options, label)
		}

		var answer string
		prompt := &survey.Select{
			Message:  fmt.Sprintf("%s condition (%d%%):", internal.PriorityLabel(len(picked)+1), internal.PriorityWeights[len(picked)]),
			Options:  options,
			PageSize: len(options),
			Description: func(value string, index int) string {
				if c, ok := internal.LookupCondition(byLabel[value]); ok {
					return c.Description
				}
				return ""
			},
		}
		if err := survey.AskOne(prompt, &answer); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil, fmt.Errorf("cancelled")
			}
			return nil, err
		}
		if answer == pickDone {
			break
		}
		picked = append(picked, byLabel[answer])
	}
	return picked, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringArrayVarP(&predictConditions, "condition", "c", nil, "Condition id in priority order (repeat up to 4 times)")
	predictCmd.Flags().IntVar(&predictMinPicks, "min-conditions", internal.MaxConditions, "Fewest conditions allowed")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the raw prediction as JSON")
}
