package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
)

var (
	verbose    bool
	homeDir    string
	apiURL     string
	configPath string
	version    = "dev"
	commit     = "none"
	date       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dlogic",
	Short: "Chat with the D-Logic horse racing prediction engine",
	Long: `dlogic is a terminal client for the D-Logic horse racing AI.

It can:
  • Chat with the prediction assistant
  • Score the runners of a race under up to four weighted conditions
  • Show today's races, past races and database statistics
  • Keep and export a local history of conversations`,
	Version:       version,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Directory for config, cache and history (default: $DLOGIC_HOME or ~/.dlogic)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend URL (overrides config and DLOGIC_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <home>/config.yaml)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("dlogic version %s (commit: %s, built: %s)\n", version, commit, date))
}

// environment is what a command needs to reach the backend and local files
type environment struct {
	paths internal.Paths
	cfg   *internal.Config
}

// loadEnvironment resolves paths and loads the config, applying flag overrides
func loadEnvironment() (*environment, error) {
	paths, err := internal.GetPaths(homeDir)
	if err != nil {
		return nil, err
	}
	path := paths.ConfigFile
	if configPath != "" {
		path = configPath
	}

	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	internal.LogDebugFields("environment loaded", "home", paths.Home, "config", path, "api_url", cfg.APIURL)
	return &environment{paths: paths, cfg: cfg}, nil
}

func (e *environment) client() (*internal.APIClient, error) {
	return internal.NewClientFromConfig(e.cfg)
}

// cache returns the response cache, or nil when caching is disabled
func (e *environment) cache() *internal.CacheManager {
	if !e.cfg.Cache.Enabled {
		return nil
	}
	return internal.NewCacheManager(e.paths.CacheDir, e.cfg.APIURL, e.cfg.Cache.TTL)
}

// openHistory opens the history database. The returned close function is
// never nil.
func (e *environment) openHistory() (*internal.HistoryStore, func(), error) {
	db, err := internal.OpenDatabase(e.paths.HistoryDB)
	if err != nil {
		return nil, func() {}, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			internal.LogWarn("Failed to close history database: %v", err)
		}
	}
	return internal.NewHistoryStore(db), closeDB, nil
}

func (e *environment) guard() *internal.Guard {
	return internal.NewGuard(e.cfg.Auth.Required, internal.SessionFromConfig(e.cfg))
}
