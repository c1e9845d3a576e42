package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
	"github.com/uma-oracle/dlogic/internal/tui"
)

var resumeID string

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the D-Logic assistant",
	Long: `Ask the D-Logic assistant about races, horses and scores.

With a message the reply is printed and the command exits. Without one an
interactive chat opens. Use --resume with a conversation id (or prefix) from
'dlogic history list' to continue an earlier conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		return env.guard().Run(cmd.Context(), func(*internal.UserSession) error {
			session, closeHistory, err := openChatSession(cmd.Context(), env, nil, resumeID)
			if err != nil {
				return err
			}
			defer closeHistory()

			if len(args) == 0 {
				return tui.Run(cmd.Context(), session)
			}

			msg, err := session.Send(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if msg.Content != "" {
				fmt.Fprintln(out, internal.WrapText(msg.Content, 80))
			}
			if msg.DLogic != nil {
				fmt.Fprint(out, internal.RenderDLogic(msg.DLogic))
			}
			return err
		})
	},
}

// openChatSession creates or resumes a session, attaching the history
// store when history is enabled.
func openChatSession(ctx context.Context, env *environment, selector *internal.Selector, resume string) (*internal.ChatSession, func(), error) {
	client, err := env.client()
	if err != nil {
		return nil, func() {}, err
	}

	if !env.cfg.History.Enabled {
		if resume != "" {
			return nil, func() {}, fmt.Errorf("cannot resume %s: history is disabled", resume)
		}
		return internal.NewChatSession(client, selector), func() {}, nil
	}

	history, closeDB, err := env.openHistory()
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open history: %w", err)
	}

	var session *internal.ChatSession
	if resume != "" {
		conv, err := history.LoadConversation(ctx, resume)
		if err != nil {
			closeDB()
			return nil, func() {}, fmt.Errorf("failed to load conversation %s: %w", resume, err)
		}
		internal.PrintInfo(fmt.Sprintf("Resuming %q (%d messages)", conv.Title, len(conv.Messages)))
		session = internal.ResumeChatSession(client, selector, conv)
	} else {
		session = internal.NewChatSession(client, selector)
	}
	session.SetHistory(history)
	return session, closeDB, nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&resumeID, "resume", "r", "", "Continue a stored conversation")
}
