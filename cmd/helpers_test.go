package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
	"github.com/uma-oracle/dlogic/testutil"
)

// resetFlags restores every package flag variable, since rootCmd is shared
// between tests.
func resetFlags() {
	verbose, homeDir, apiURL, configPath = false, "", "", ""
	resumeID = ""
	predictConditions, predictMinPicks, predictJSON = nil, internal.MaxConditions, false
	conditionsSelect = nil
	refresh, racesRaw = false, false
	loginToken, loginName, loginEmail = "", "", ""
	historyLimit, limit, since, assumeYes = 0, 0, "", false
	format, outputDir, conversationID = "jsonl", "./exports", ""
	resetBoolFlags(rootCmd, "help", "version")
}

func resetBoolFlags(c *cobra.Command, names ...string) {
	for _, name := range names {
		if f := c.Flags().Lookup(name); f != nil {
			_ = f.Value.Set("false")
			f.Changed = false
		}
	}
	for _, sub := range c.Commands() {
		resetBoolFlags(sub, names...)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

// testHome points the client at a fresh home directory and clears the
// environment overrides a developer machine may carry.
func testHome(t *testing.T) string {
	t.Helper()
	t.Setenv("DLOGIC_API_URL", "")
	t.Setenv("NEXT_PUBLIC_API_URL", "")
	t.Setenv("DLOGIC_TOKEN", "")
	t.Setenv("DLOGIC_LINE_ACCOUNT_ID", "")
	t.Setenv("NEXT_PUBLIC_LINE_ACCOUNT_ID", "")
	return testutil.SetHome(t)
}

func signIn(t *testing.T, home string) {
	t.Helper()
	cfg, err := internal.LoadConfig(filepath.Join(home, "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	cfg.SetSession("test-token", "Taro", "taro@example.test")
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

// seedHistory stores conversations in the history database under home
func seedHistory(t *testing.T, home string, convs ...*internal.Conversation) {
	t.Helper()
	db, err := internal.OpenDatabase(filepath.Join(home, "history.db"))
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()

	store := internal.NewHistoryStore(db)
	for _, conv := range convs {
		if err := store.SaveConversation(context.Background(), conv); err != nil {
			t.Fatalf("SaveConversation(%s) error = %v", conv.ID, err)
		}
	}
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\n--- output ---\n%s", w, out)
		}
	}
}
