package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
	"golang.org/x/sync/errgroup"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:     "health",
	Aliases: []string{"healthcheck"},
	Short:   "Check the backend and local files",
	Long: `Check the health of the D-Logic client by verifying:
  • Configuration and local paths
  • Backend reachability and database statistics
  • History database and response cache
  • Stored login session

The backend checks run concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 D-Logic Health Check"))
		fmt.Fprintln(out)

		// Step 1: configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		env, err := loadEnvironment()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to load configuration:"), err)
			return err
		}
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		fmt.Fprintf(out, "   Home: %s\n", env.paths.Home)
		if env.paths.ConfigExists() {
			fmt.Fprintf(out, "   Config: %s\n", env.paths.ConfigFile)
		} else {
			fmt.Fprintln(out, "   Config: defaults (no config file)")
		}
		fmt.Fprintf(out, "   API: %s\n", env.cfg.APIURL)
		fmt.Fprintln(out)

		// Step 2: backend
		fmt.Fprintln(out, infoStyle.Render("Step 2: Probing backend..."))
		client, err := env.client()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Invalid API URL:"), err)
			return err
		}
		checks := checkBackend(cmd.Context(), client)
		backendOK := reportBackend(out, checks)
		fmt.Fprintln(out)

		// Step 3: local storage
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking local storage..."))
		storageOK := checkStorage(cmd.Context(), out, env)
		fmt.Fprintln(out)

		// Step 4: session
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking login session..."))
		if sess, err := internal.SessionFromConfig(env.cfg)(cmd.Context()); err == nil && sess != nil {
			fmt.Fprintln(out, successStyle.Render("✅ Signed in"), sess.Email)
			if !sess.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "   Expires: %s\n", humanize.Time(sess.ExpiresAt))
			}
		} else if env.cfg.Auth.Required {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Not signed in, run 'dlogic login'"))
		} else {
			fmt.Fprintln(out, infoStyle.Render("ℹ️  Not signed in (login not required)"))
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		switch {
		case backendOK && storageOK:
			fmt.Fprintln(out, successStyle.Render("✅ All checks passed"))
			return nil
		case backendOK:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Backend reachable, local storage has problems"))
			return nil
		default:
			fmt.Fprintln(out, errorStyle.Render("❌ Backend unavailable, races and stats will use cached or built-in data"))
			return fmt.Errorf("health check failed: backend unavailable")
		}
	},
}

// backendChecks holds the results of the concurrent backend checks
type backendChecks struct {
	health    *internal.HealthStatus
	healthErr error
	stats     *internal.DatabaseStatsResponse
	statsErr  error
}

// checkBackend runs the health and database statistics requests concurrently.
// Failures are recorded rather than cancelling the sibling check.
func checkBackend(ctx context.Context, client *internal.APIClient) backendChecks {
	var p backendChecks
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.health, p.healthErr = client.Health(gctx)
		return nil
	})
	g.Go(func() error {
		p.stats, p.statsErr = client.DatabaseStats(gctx)
		return nil
	})
	_ = g.Wait()
	return p
}

func reportBackend(out io.Writer, p backendChecks) bool {
	ok := false
	switch {
	case p.healthErr != nil:
		fmt.Fprintln(out, errorStyle.Render("❌ Backend unreachable:"), p.healthErr)
	case p.health.Healthy:
		ok = true
		fmt.Fprintln(out, successStyle.Render("✅ Backend healthy"), fmt.Sprintf("(%dms)", p.health.Latency))
		if p.health.Message != "" {
			fmt.Fprintf(out, "   %s\n", p.health.Message)
		}
	default:
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("❌ Backend returned status %d", p.health.StatusCode)))
	}

	if p.statsErr != nil {
		fmt.Fprintln(out, warningStyle.Render("⚠️  Database statistics unavailable:"), p.statsErr)
	} else {
		st := p.stats.DatabaseStats
		fmt.Fprintln(out, successStyle.Render("✅ Database statistics available"))
		fmt.Fprintf(out, "   %s records, %s horses, %s races\n",
			humanize.Comma(st.TotalRecords), humanize.Comma(st.TotalHorses), humanize.Comma(st.TotalRaces))
	}
	return ok
}

func checkStorage(ctx context.Context, out io.Writer, env *environment) bool {
	ok := true
	if env.cfg.History.Enabled {
		history, closeDB, err := env.openHistory()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ History database unavailable:"), err)
			ok = false
		} else {
			defer closeDB()
			convs, err := history.ListConversations(ctx, 0)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to read history:"), err)
				ok = false
			} else {
				fmt.Fprintln(out, successStyle.Render("✅ History database ready"), fmt.Sprintf("(%d conversations)", len(convs)))
			}
		}
	} else {
		fmt.Fprintln(out, infoStyle.Render("ℹ️  History disabled"))
	}

	if cache := env.cache(); cache == nil {
		fmt.Fprintln(out, infoStyle.Render("ℹ️  Cache disabled"))
	} else if cache.IsCacheValid() {
		fmt.Fprintln(out, successStyle.Render("✅ Response cache present"), cache.GetCacheDir())
	} else {
		fmt.Fprintln(out, infoStyle.Render("ℹ️  Response cache empty"))
	}
	return ok
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
