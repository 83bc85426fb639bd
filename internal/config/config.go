package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/bbb-collector/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Browserbase BrowserbaseConfig `yaml:"browserbase" mapstructure:"browserbase"`
	Model       ModelConfig       `yaml:"model" mapstructure:"model"`
	Scraper     ScraperConfig     `yaml:"scraper" mapstructure:"scraper"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// BrowserbaseConfig configures the hosted browser sessions.
type BrowserbaseConfig struct {
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	ProjectID      string `yaml:"project_id" mapstructure:"project_id"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ViewportWidth  int    `yaml:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" mapstructure:"viewport_height"`
	Locale         string `yaml:"locale" mapstructure:"locale"`
	BlockAds       bool   `yaml:"block_ads" mapstructure:"block_ads"`
	Proxies        bool   `yaml:"proxies" mapstructure:"proxies"`
}

// ModelConfig selects and configures the extraction model.
type ModelConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // "openai" or "anthropic"
	Name            string `yaml:"name" mapstructure:"name"`         // empty selects the provider default
	OpenAIKey       string `yaml:"openai_key" mapstructure:"openai_key"`
	AnthropicKey    string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens       int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxContentChars int    `yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// APIKey returns the key for the selected provider.
func (m ModelConfig) APIKey() string {
	if m.Provider == ProviderAnthropic {
		return m.AnthropicKey
	}
	return m.OpenAIKey
}

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ScraperConfig tunes the collection pipeline.
type ScraperConfig struct {
	BaseURL               string `yaml:"base_url" mapstructure:"base_url"`
	TotalPages            int    `yaml:"total_pages" mapstructure:"total_pages"`
	MaxPages              int    `yaml:"max_pages" mapstructure:"max_pages"`
	BusinessesPerSession  int    `yaml:"businesses_per_session" mapstructure:"businesses_per_session"`
	NavigationTimeoutSecs int    `yaml:"navigation_timeout_secs" mapstructure:"navigation_timeout_secs"`
	RequestDelayMs        int    `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
	NetworkIdleMs         int    `yaml:"network_idle_ms" mapstructure:"network_idle_ms"`
}

// NavigationTimeout returns the per-page load bound.
func (s ScraperConfig) NavigationTimeout() time.Duration {
	return time.Duration(s.NavigationTimeoutSecs) * time.Second
}

// RequestDelay returns the spacing between detail fetches in a session.
func (s ScraperConfig) RequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// NetworkIdle returns how long the network must be quiet after a load.
func (s ScraperConfig) NetworkIdle() time.Duration {
	return time.Duration(s.NetworkIdleMs) * time.Millisecond
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres", "sqlite" or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// OutputConfig configures export files written by the scrape command.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// envAliases maps config keys to the unprefixed variable names deployments
// already use.
var envAliases = map[string]string{
	"browserbase.api_key":    "BROWSERBASE_API_KEY",
	"browserbase.project_id": "BROWSERBASE_PROJECT_ID",
	"model.openai_key":       "OPENAI_API_KEY",
	"model.anthropic_key":    "ANTHROPIC_API_KEY",
	"store.database_url":     "DATABASE_URL",
}

// Load reads configuration from .env, config.yaml and the environment.
// Variables use the BBB_ prefix (BBB_SCRAPER_TOTAL_PAGES) and the secrets
// also accept their unprefixed names.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BBB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := "BBB_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("browserbase.base_url", "https://api.browserbase.com/v1")
	v.SetDefault("browserbase.viewport_width", 1024)
	v.SetDefault("browserbase.viewport_height", 768)
	v.SetDefault("browserbase.locale", "en-US")
	v.SetDefault("browserbase.block_ads", true)
	v.SetDefault("browserbase.proxies", true)
	v.SetDefault("model.provider", ProviderOpenAI)
	v.SetDefault("model.max_tokens", 2048)
	v.SetDefault("model.max_content_chars", 60000)
	v.SetDefault("scraper.base_url", "https://www.bbb.org/search?filter_category=60548-100&filter_category=60142-000&filter_ratings=A&find_country=USA&find_text=Medical+Billing")
	v.SetDefault("scraper.total_pages", 3)
	v.SetDefault("scraper.max_pages", 50)
	v.SetDefault("scraper.businesses_per_session", 15)
	v.SetDefault("scraper.navigation_timeout_secs", 30)
	v.SetDefault("scraper.request_delay_ms", 1000)
	v.SetDefault("scraper.network_idle_ms", 500)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.formats", []string{"json", "csv"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Credentials returns the secrets a collection run needs.
func (c *Config) Credentials() model.Credentials {
	return model.Credentials{
		BrowserAPIKey:    c.Browserbase.APIKey,
		BrowserProjectID: c.Browserbase.ProjectID,
		ModelAPIKey:      c.Model.APIKey(),
	}
}

// Validate checks everything a collection run needs before any session
// opens. Failures are *model.ConfigurationError.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return &model.ConfigurationError{Reason: fmt.Sprintf("unknown model provider %q", c.Model.Provider)}
	}
	if err := c.Credentials().Validate(); err != nil {
		return err
	}
	if c.Scraper.MaxPages > 0 && c.Scraper.TotalPages > c.Scraper.MaxPages {
		return &model.ConfigurationError{Reason: fmt.Sprintf("scraper.total_pages %d exceeds max_pages %d", c.Scraper.TotalPages, c.Scraper.MaxPages)}
	}
	if c.Scraper.BusinessesPerSession < 1 {
		return &model.ConfigurationError{Reason: "scraper.businesses_per_session must be at least 1"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	zap.ReplaceGlobals(logger)
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
