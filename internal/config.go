package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the client configuration
type Config struct {
	APIURL        string        `mapstructure:"api_url" yaml:"api_url"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Token         string        `mapstructure:"token" yaml:"token,omitempty"`
	User          UserConfig    `mapstructure:"user" yaml:"user,omitempty"`
	Cache         CacheConfig   `mapstructure:"cache" yaml:"cache"`
	History       HistoryConfig `mapstructure:"history" yaml:"history"`
	Auth          AuthConfig    `mapstructure:"auth" yaml:"auth"`
	LineAccountID string        `mapstructure:"line_account_id" yaml:"line_account_id,omitempty"`

	path string
}

// UserConfig identifies the signed-in user
type UserConfig struct {
	Name  string `mapstructure:"name" yaml:"name,omitempty"`
	Email string `mapstructure:"email" yaml:"email,omitempty"`
}

// CacheConfig controls the response cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// HistoryConfig controls conversation persistence
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AuthConfig controls the login gate
type AuthConfig struct {
	Required bool `mapstructure:"required" yaml:"required"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("token", "")
	v.SetDefault("user.name", "")
	v.SetDefault("user.email", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("history.enabled", true)
	v.SetDefault("auth.required", true)
	v.SetDefault("line_account_id", DefaultLineAccountID)
}

// LoadConfig reads the config file at path, then DLOGIC_* environment
// variables. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.SetEnvPrefix("DLOGIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		LogDebug("No config file at %s, using defaults", path)
	}

	// a .env beside the config and the web frontend's variable apply only
	// when DLOGIC_API_URL is not set in the environment
	if os.Getenv("DLOGIC_API_URL") == "" {
		dotenv := readDotEnv(filepath.Join(filepath.Dir(path), ".env"))
		if u := firstNonEmpty(dotenv["DLOGIC_API_URL"], os.Getenv("NEXT_PUBLIC_API_URL"), dotenv["NEXT_PUBLIC_API_URL"]); u != "" {
			v.Set("api_url", u)
		}
	}
	if os.Getenv("DLOGIC_LINE_ACCOUNT_ID") == "" {
		if id := os.Getenv("NEXT_PUBLIC_LINE_ACCOUNT_ID"); id != "" {
			v.Set("line_account_id", id)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = path

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.LineAccountID == "" {
		cfg.LineAccountID = DefaultLineAccountID
	}
	if cfg.Timeout < 0 {
		return nil, &ValidationError{Field: "timeout", Reason: "must not be negative"}
	}
	return &cfg, nil
}

// readDotEnv reads KEY=value pairs without touching the process environment
func readDotEnv(path string) map[string]string {
	vals, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			LogWarn("Ignoring %s: %v", path, err)
		}
		return nil
	}
	LogDebug("Loaded %d value(s) from %s", len(vals), path)
	return vals
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// LineFriendURL is the link that adds the configured LINE account as a friend
func (c *Config) LineFriendURL() string {
	return lineFriendURL + url.PathEscape(c.LineAccountID)
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the config back to its file with owner-only permissions
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return &StorageError{Path: c.path, Op: "mkdir", Err: err}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return &StorageError{Path: c.path, Op: "write", Err: err}
	}
	return nil
}

// IsAuthenticated reports whether a token is stored
func (c *Config) IsAuthenticated() bool {
	return c.Token != ""
}

// SetSession stores the login result
func (c *Config) SetSession(token, name, email string) {
	c.Token = token
	c.User = UserConfig{Name: name, Email: email}
}

// ClearSession removes the stored login
func (c *Config) ClearSession() {
	c.Token = ""
	c.User = UserConfig{}
}

// NewClientFromConfig builds an API client from the config
func NewClientFromConfig(cfg *Config) (*APIClient, error) {
	return NewAPIClient(cfg.APIURL, WithToken(cfg.Token), WithTimeout(cfg.Timeout))
}
