package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

var (
	loginToken string
	loginName  string
	loginEmail string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a D-Logic session token",
	Long: `Sign in by storing the session token issued by the D-Logic web app.

The token is saved in the config file with owner-only permissions. Name and
email are taken from the token when it carries them. Without --token the
values are asked for interactively.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		token, name, email := loginToken, loginName, loginEmail
		if token == "" {
			if !internal.IsTerminal(os.Stdin) {
				return &internal.ValidationError{Field: "token", Reason: "required, use --token"}
			}
			if err := survey.AskOne(&survey.Password{Message: "Session token:"}, &token, survey.WithValidator(survey.Required)); err != nil {
				return err
			}
		}

		if exp, ok := internal.TokenExpiry(token); ok && !time.Now().Before(exp) {
			return &internal.ValidationError{Field: "token", Reason: "expired " + humanize.Time(exp)}
		}

		claimName, claimEmail := internal.TokenIdentity(token)
		if name == "" {
			name = claimName
		}
		if email == "" {
			email = claimEmail
		}
		if email == "" && internal.IsTerminal(os.Stdin) {
			if err := survey.AskOne(&survey.Input{Message: "Email:"}, &email); err != nil {
				return err
			}
		}

		env.cfg.SetSession(token, name, email)
		if err := env.cfg.Save(); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		internal.LogDebugFields("session stored", "config", env.cfg.Path(), "email", email)
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Signed in"), displayName(name, email))
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		if !env.cfg.IsAuthenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		env.cfg.ClearSession()
		if err := env.cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Signed out"))
		return nil
	},
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		guard := env.guard()
		guard.RequireAuth = false
		sess, err := guard.Check(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case sess != nil:
			fmt.Fprintln(out, displayName(sess.Name, sess.Email))
			if !sess.ExpiresAt.IsZero() {
				fmt.Fprintln(out, dateStyle.Render("expires "+humanize.Time(sess.ExpiresAt)))
			}
		case env.cfg.IsAuthenticated():
			fmt.Fprintln(out, warningStyle.Render("⚠️  Session expired, run 'dlogic login'"))
		default:
			fmt.Fprintln(out, "Not signed in.")
		}
		fmt.Fprintln(out, dateStyle.Render("LINE: "+env.cfg.LineFriendURL()))
		return nil
	},
}

func displayName(name, email string) string {
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case email != "":
		return email
	case name != "":
		return name
	default:
		return "(anonymous)"
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&loginToken, "token", "", "Session token")
	loginCmd.Flags().StringVar(&loginName, "name", "", "Display name")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
}
