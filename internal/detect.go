package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the locations of the client's local files
type Paths struct {
	Home       string // base directory (~/.dlogic)
	ConfigFile string // config.yaml
	CacheDir   string // response cache
	HistoryDB  string // conversation history database
}

// DetectPaths resolves the local paths from DLOGIC_HOME or the user's home
func DetectPaths() (Paths, error) {
	if env := os.Getenv("DLOGIC_HOME"); env != "" {
		return pathsFor(env), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get home directory: %w", err)
	}
	return pathsFor(filepath.Join(home, ".dlogic")), nil
}

// GetPaths returns paths rooted at custom, or the detected paths when
// custom is empty.
func GetPaths(custom string) (Paths, error) {
	if custom == "" {
		return DetectPaths()
	}
	abs, err := filepath.Abs(custom)
	if err != nil {
		return Paths{}, fmt.Errorf("invalid home directory %q: %w", custom, err)
	}
	return pathsFor(abs), nil
}

func pathsFor(base string) Paths {
	return Paths{
		Home:       base,
		ConfigFile: filepath.Join(base, "config.yaml"),
		CacheDir:   filepath.Join(base, "cache"),
		HistoryDB:  filepath.Join(base, "history.db"),
	}
}

// HistoryExists reports whether the history database has been created
func (p Paths) HistoryExists() bool {
	info, err := os.Stat(p.HistoryDB)
	return err == nil && !info.IsDir()
}

// ConfigExists reports whether a config file is present
func (p Paths) ConfigExists() bool {
	info, err := os.Stat(p.ConfigFile)
	return err == nil && !info.IsDir()
}
