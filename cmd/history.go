package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

var (
	historyLimit int
	limit        int
	since        string
	assumeYes    bool
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// historyCmd groups the conversation history commands
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored conversations",
	Long: `Conversations are stored locally after every exchange. Ids may be
shortened to any unique prefix.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(h *internal.HistoryStore) error {
			convs, err := h.ListConversations(cmd.Context(), historyLimit)
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			displayConversations(cmd.OutOrStdout(), convs, time.Now())
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sinceTime time.Time
		if since != "" {
			t, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = t
		}

		return withHistory(func(h *internal.HistoryStore) error {
			conv, err := h.LoadConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			displayConversationHeader(out, conv)

			messages := conv.Messages
			if !sinceTime.IsZero() {
				filtered := make([]internal.Message, 0, len(messages))
				for _, msg := range messages {
					if !msg.Timestamp.Before(sinceTime) {
						filtered = append(filtered, msg)
					}
				}
				messages = filtered
			}

			total := len(messages)
			if limit > 0 && limit < total {
				messages = messages[:limit]
			}
			for i, msg := range messages {
				displayMessage(out, i+1, msg, total)
			}
			if limit > 0 && limit < total {
				fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("... (%d more message(s))", total-limit)))
			}
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a stored conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(h *internal.HistoryStore) error {
			id, err := h.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !assumeYes {
				if !internal.IsTerminal(os.Stdin) {
					return &internal.ValidationError{Field: "yes", Reason: "confirmation required, use --yes"}
				}
				confirmed := false
				prompt := &survey.Confirm{Message: fmt.Sprintf("Delete conversation %s?", id)}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			if _, err := h.DeleteConversation(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Deleted"), id)
			return nil
		})
	},
}

// withHistory opens the history database for the duration of fn
func withHistory(fn func(*internal.HistoryStore) error) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if !env.cfg.History.Enabled {
		return fmt.Errorf("history is disabled (history.enabled: false)")
	}
	h, closeDB, err := env.openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer closeDB()
	return fn(h)
}

func displayConversations(out io.Writer, convs []internal.ConversationSummary, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No conversations found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d conversation(s)", len(convs))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 80))

	for _, c := range convs {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		title = runewidth.Truncate(title, 40, "...")

		shortID := c.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID),
			title,
			countStyle.Render(strconv.Itoa(c.MessageCount)),
			dateStyle.Render(humanize.RelTime(c.UpdatedAt, now, "ago", "from now")))
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use an id (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(convs[0].ID[:min(8, len(convs[0].ID))])+
		idStyle.Render(") with `dlogic history show <id>` or `dlogic chat --resume <id>`"))
}

func displayConversationHeader(out io.Writer, conv *internal.Conversation) {
	title := conv.Title
	if title == "" {
		title = conv.ID
	}
	fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	metaParts := []string{
		fmt.Sprintf("ID: %s", conv.ID),
		fmt.Sprintf("Started: %s", conv.CreatedAt.Local().Format("2006-01-02 15:04")),
		fmt.Sprintf("Messages: %d", len(conv.Messages)),
	}
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)
}

func displayMessage(out io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 You"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🏇 D-Logic"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if !msg.Timestamp.IsZero() {
		header += " " + timestampStyle.Render(msg.Timestamp.Local().Format("15:04:05"))
	}
	fmt.Fprintln(out, header)

	if msg.Prediction != nil {
		fmt.Fprintln(out, messageContentStyle.Render(internal.RenderPrediction(msg.Prediction)))
		return
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
		return
	}
	fmt.Fprintln(out, messageContentStyle.Render(internal.WrapText(content, 80)))
	if msg.DLogic != nil {
		fmt.Fprintln(out, messageContentStyle.Render(internal.RenderDLogic(msg.DLogic)))
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most this many conversations")
	historyShowCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	historyShowCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
	historyDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Delete without asking")
}
