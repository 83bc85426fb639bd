package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bbb-collector/internal/browser"
	"github.com/sells-group/bbb-collector/internal/collect"
	"github.com/sells-group/bbb-collector/internal/config"
	"github.com/sells-group/bbb-collector/internal/extract"
	"github.com/sells-group/bbb-collector/internal/pipeline"
	"github.com/sells-group/bbb-collector/internal/resilience"
	"github.com/sells-group/bbb-collector/internal/store"
	"github.com/sells-group/bbb-collector/pkg/anthropic"
	"github.com/sells-group/bbb-collector/pkg/browserbase"
)

// initStore opens the configured store. Driver "none" returns a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "none", "":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "bbb.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("postgres store requires store.database_url (DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the store, failing when persistence is off.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("store driver is \"none\"; configure store.driver to read stored data")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// buildCompleter returns the model backend for the configured provider.
func buildCompleter(m config.ModelConfig) (extract.Completer, error) {
	switch m.Provider {
	case config.ProviderOpenAI:
		return extract.NewOpenAICompleter(m.OpenAIKey, m.Name, m.BaseURL), nil
	case config.ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithMaxRetries(0)}
		if m.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(m.BaseURL))
		}
		client := anthropic.NewClient(m.AnthropicKey, opts...)
		return extract.NewAnthropicCompleter(client, m.Name), nil
	default:
		return nil, eris.Errorf("unsupported model provider: %s", m.Provider)
	}
}

// buildPipeline wires the browser provider, the extractor and the pipeline
// from cfg.
func buildPipeline(c *config.Config) (*pipeline.Pipeline, error) {
	completer, err := buildCompleter(c.Model)
	if err != nil {
		return nil, err
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ShouldTrip:       resilience.IsTransient,
	})
	extractor := extract.NewModelExtractor(completer,
		extract.WithCircuitBreaker(breaker),
		extract.WithMaxContentChars(c.Model.MaxContentChars),
		extract.WithMaxTokens(int64(c.Model.MaxTokens)),
	)

	var bbOpts []browserbase.Option
	if c.Browserbase.BaseURL != "" {
		bbOpts = append(bbOpts, browserbase.WithBaseURL(c.Browserbase.BaseURL))
	}
	api := browserbase.NewClient(c.Browserbase.APIKey, c.Browserbase.ProjectID, bbOpts...)

	settings := browser.DefaultSettings()
	if c.Browserbase.ViewportWidth > 0 && c.Browserbase.ViewportHeight > 0 {
		settings.ViewportWidth = c.Browserbase.ViewportWidth
		settings.ViewportHeight = c.Browserbase.ViewportHeight
	}
	if c.Browserbase.Locale != "" {
		settings.Locale = c.Browserbase.Locale
	}
	settings.BlockAds = c.Browserbase.BlockAds
	settings.Proxies = c.Browserbase.Proxies
	if idle := c.Scraper.NetworkIdle(); idle > 0 {
		settings.NetworkIdle = idle
	}

	provider := browser.NewProvider(api, extractor, c.Credentials(), settings)
	opts := pipeline.Options{
		BusinessesPerSession: c.Scraper.BusinessesPerSession,
		NavigationTimeout:    c.Scraper.NavigationTimeout(),
		RequestDelay:         c.Scraper.RequestDelay(),
	}
	return pipeline.New(providerOpener(provider), c.Credentials(), opts), nil
}

// providerOpener adapts a browser provider to the pipeline. The explicit nil
// return keeps a nil *browser.Session from becoming a non-nil interface.
func providerOpener(p *browser.Provider) pipeline.Opener {
	return pipeline.OpenerFunc(func(ctx context.Context) (pipeline.Session, error) {
		s, err := p.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// initCollector wires the pipeline and the configured store. The returned
// store may be nil.
func initCollector(ctx context.Context) (*collect.Service, store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, nil, err
		}
	}

	return collect.NewService(p, st), st, nil
}
