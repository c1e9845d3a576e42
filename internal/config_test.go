package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uma-oracle/dlogic/testutil"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DLOGIC_API_URL", "DLOGIC_TIMEOUT", "DLOGIC_TOKEN", "DLOGIC_AUTH_REQUIRED", "NEXT_PUBLIC_API_URL",
		"DLOGIC_LINE_ACCOUNT_ID", "NEXT_PUBLIC_LINE_ACCOUNT_ID"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(testutil.CreateTempDir(t), "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.History.Enabled)
	assert.True(t, cfg.Auth.Required)
	assert.False(t, cfg.IsAuthenticated())
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, DefaultLineAccountID, cfg.LineAccountID)
	assert.Equal(t, "https://line.me/R/ti/p/@082thmrq", cfg.LineFriendURL())
}

func TestLoadConfig_LineAccount(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		wantID   string
		wantLink string
	}{
		{
			name:     "config file",
			file:     "line_account_id: \"@fromfile\"\n",
			wantID:   "@fromfile",
			wantLink: "https://line.me/R/ti/p/@fromfile",
		},
		{
			name:     "frontend variable",
			env:      map[string]string{"NEXT_PUBLIC_LINE_ACCOUNT_ID": "@frontend"},
			wantID:   "@frontend",
			wantLink: "https://line.me/R/ti/p/@frontend",
		},
		{
			name:     "own variable wins",
			env:      map[string]string{"NEXT_PUBLIC_LINE_ACCOUNT_ID": "@frontend", "DLOGIC_LINE_ACCOUNT_ID": "@own"},
			wantID:   "@own",
			wantLink: "https://line.me/R/ti/p/@own",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(testutil.CreateTempDir(t), "config.yaml")
			if tt.file != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0600))
			}

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, cfg.LineAccountID)
			assert.Equal(t, tt.wantLink, cfg.LineFriendURL())
		})
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(testutil.CreateTempDir(t), "config.yaml")
	content := "api_url: http://localhost:8000\ntimeout: 15s\ncache:\n  ttl: 1m\nauth:\n  required: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Auth.Required)

	t.Setenv("DLOGIC_API_URL", "http://env.example.test")
	t.Setenv("DLOGIC_AUTH_REQUIRED", "true")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.test", cfg.APIURL)
	assert.True(t, cfg.Auth.Required)
}

func TestLoadConfig_FrontendVariable(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(testutil.CreateTempDir(t), "config.yaml")

	t.Setenv("NEXT_PUBLIC_API_URL", "http://frontend.example.test")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://frontend.example.test", cfg.APIURL)

	t.Setenv("DLOGIC_API_URL", "http://explicit.example.test")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://explicit.example.test", cfg.APIURL)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearConfigEnv(t)
	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("# local backend\nNEXT_PUBLIC_API_URL=http://dotenv-frontend.test\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv-frontend.test", cfg.APIURL)
	assert.Empty(t, os.Getenv("NEXT_PUBLIC_API_URL"), ".env must not leak into the environment")

	t.Setenv("NEXT_PUBLIC_API_URL", "http://env-frontend.test")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env-frontend.test", cfg.APIURL)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DLOGIC_API_URL=http://dotenv.test\n"), 0600))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.test", cfg.APIURL)

	t.Setenv("DLOGIC_API_URL", "http://env.test")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.APIURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearConfigEnv(t)
	dir := testutil.CreateTempDir(t)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("api_url: [unclosed\n"), 0600))
	_, err := LoadConfig(broken)
	assert.Error(t, err)

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("timeout: -1s\n"), 0600))
	_, err = LoadConfig(negative)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(testutil.CreateTempDir(t), "sub", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.SetSession("tok-abc", "太郎", "taro@example.test")
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.IsAuthenticated())
	assert.Equal(t, "tok-abc", loaded.Token)
	assert.Equal(t, "太郎", loaded.User.Name)
	assert.Equal(t, 60*time.Second, loaded.Timeout)

	loaded.ClearSession()
	require.NoError(t, loaded.Save())
	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, again.IsAuthenticated())
	assert.Empty(t, again.User.Email)
}

func TestConfig_SaveWithoutPath(t *testing.T) {
	assert.Error(t, (&Config{}).Save())
}

func TestNewClientFromConfig(t *testing.T) {
	api, err := NewClientFromConfig(&Config{APIURL: "localhost:8000/", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:8000", api.BaseURL())

	_, err = NewClientFromConfig(&Config{APIURL: "ftp://x"})
	assert.Error(t, err)
}
