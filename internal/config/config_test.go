package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/model"
)

// inTempDir moves the test into an empty directory so no config.yaml or .env
// is picked up, and clears the secret variables.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range envAliases {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.browserbase.com/v1", cfg.Browserbase.BaseURL)
	assert.Equal(t, 1024, cfg.Browserbase.ViewportWidth)
	assert.Equal(t, 768, cfg.Browserbase.ViewportHeight)
	assert.Equal(t, "en-US", cfg.Browserbase.Locale)
	assert.True(t, cfg.Browserbase.BlockAds)
	assert.True(t, cfg.Browserbase.Proxies)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Empty(t, cfg.Model.Name)
	assert.Equal(t, 2048, cfg.Model.MaxTokens)
	assert.Contains(t, cfg.Scraper.BaseURL, "find_text=Medical+Billing")
	assert.Equal(t, 3, cfg.Scraper.TotalPages)
	assert.Equal(t, 50, cfg.Scraper.MaxPages)
	assert.Equal(t, 15, cfg.Scraper.BusinessesPerSession)
	assert.Equal(t, 30*time.Second, cfg.Scraper.NavigationTimeout())
	assert.Equal(t, time.Second, cfg.Scraper.RequestDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.NetworkIdle())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, []string{"json", "csv"}, cfg.Output.Formats)
	assert.Empty(t, cfg.Browserbase.APIKey)
}

func TestLoadFromYAML(t *testing.T) {
	dir := inTempDir(t)

	yaml := `
store:
  driver: sqlite
  database_url: bbb.db
log:
  level: debug
  format: console
server:
  port: 9090
scraper:
  total_pages: 5
  businesses_per_session: 10
model:
  provider: anthropic
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bbb.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Scraper.TotalPages)
	assert.Equal(t, 10, cfg.Scraper.BusinessesPerSession)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Scraper.NavigationTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("BBB_SERVER_PORT", "7070")
	t.Setenv("BBB_SCRAPER_REQUEST_DELAY_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.RequestDelay())
}

func TestLoadSecretAliases(t *testing.T) {
	inTempDir(t)
	t.Setenv("BROWSERBASE_API_KEY", "bb-key")
	t.Setenv("BROWSERBASE_PROJECT_ID", "proj-1")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("DATABASE_URL", "postgres://localhost/bbb")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "bb-key", cfg.Browserbase.APIKey)
	assert.Equal(t, "proj-1", cfg.Browserbase.ProjectID)
	assert.Equal(t, "sk-openai", cfg.Model.OpenAIKey)
	assert.Equal(t, "sk-ant", cfg.Model.AnthropicKey)
	assert.Equal(t, "postgres://localhost/bbb", cfg.Store.DatabaseURL)
}

func TestLoadPrefixedSecretWins(t *testing.T) {
	inTempDir(t)
	t.Setenv("BROWSERBASE_API_KEY", "plain")
	t.Setenv("BBB_BROWSERBASE_API_KEY", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Browserbase.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	env := "BROWSERBASE_API_KEY=from-dotenv\nOPENAI_API_KEY=sk-dotenv\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Browserbase.APIKey)
	assert.Equal(t, "sk-dotenv", cfg.Model.OpenAIKey)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validConfig() *Config {
	return &Config{
		Browserbase: BrowserbaseConfig{APIKey: "bb", ProjectID: "proj"},
		Model:       ModelConfig{Provider: ProviderOpenAI, OpenAIKey: "sk"},
		Scraper:     ScraperConfig{TotalPages: 3, MaxPages: 50, BusinessesPerSession: 15},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		missing []string
		reason  string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing model key",
			mutate:  func(c *Config) { c.Model.OpenAIKey = "" },
			missing: []string{"model API key"},
		},
		{
			name:    "anthropic uses its own key",
			mutate:  func(c *Config) { c.Model.Provider = ProviderAnthropic },
			missing: []string{"model API key"},
		},
		{
			name: "all browser credentials missing",
			mutate: func(c *Config) {
				c.Browserbase = BrowserbaseConfig{}
			},
			missing: []string{"browser API key", "browser project id"},
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Model.Provider = "llama" },
			reason: `unknown model provider "llama"`,
		},
		{
			name:   "too many pages",
			mutate: func(c *Config) { c.Scraper.TotalPages = 51 },
			reason: "scraper.total_pages 51 exceeds max_pages 50",
		},
		{
			name:   "zero batch size",
			mutate: func(c *Config) { c.Scraper.BusinessesPerSession = 0 },
			reason: "scraper.businesses_per_session must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.missing == nil && tt.reason == "" {
				assert.NoError(t, err)
				return
			}

			var cfgErr *model.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.missing, cfgErr.Missing)
			assert.Equal(t, tt.reason, cfgErr.Reason)
		})
	}
}

func TestCredentials_PicksProviderKey(t *testing.T) {
	cfg := validConfig()
	cfg.Model.AnthropicKey = "sk-ant"
	assert.Equal(t, "sk", cfg.Credentials().ModelAPIKey)

	cfg.Model.Provider = ProviderAnthropic
	assert.Equal(t, "sk-ant", cfg.Credentials().ModelAPIKey)
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "json info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "console debug", cfg: LogConfig{Level: "debug", Format: "console"}},
		{name: "bad level", cfg: LogConfig{Level: "loud", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := zap.L()
			t.Cleanup(func() { zap.ReplaceGlobals(prev) })

			err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}
