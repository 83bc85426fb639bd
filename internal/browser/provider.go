package browser

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bbb-collector/internal/extract"
	"github.com/sells-group/bbb-collector/internal/model"
	"github.com/sells-group/bbb-collector/internal/resilience"
	"github.com/sells-group/bbb-collector/pkg/browserbase"
)

// Settings describes the remote browser each session gets.
type Settings struct {
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	BlockAds       bool
	Proxies        bool
	NetworkIdle    time.Duration
}

// DefaultSettings returns a desktop Chrome on Windows, en-US, ads blocked,
// behind the provider's proxies.
func DefaultSettings() Settings {
	return Settings{
		ViewportWidth:  1024,
		ViewportHeight: 768,
		Locale:         "en-US",
		BlockAds:       true,
		Proxies:        true,
		NetworkIdle:    500 * time.Millisecond,
	}
}

type connectFunc func(ctx context.Context, wsURL string, s Settings) (driver, error)

// Provider opens sessions. One Provider serves a whole run.
type Provider struct {
	api       browserbase.Client
	extractor extract.Extractor
	creds     model.Credentials
	settings  Settings
	retry     resilience.RetryConfig
	connect   connectFunc
}

// NewProvider creates a Provider. creds are checked on every Open so a
// misconfigured run fails before a session is created.
func NewProvider(api browserbase.Client, extractor extract.Extractor, creds model.Credentials, settings Settings) *Provider {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = retryable
	retry.OnRetry = resilience.RetryLogger("browserbase", "create_session")
	return &Provider{
		api:       api,
		extractor: extractor,
		creds:     creds,
		settings:  settings,
		retry:     retry,
		connect:   connectChrome,
	}
}

// Open creates a hosted session and attaches a page to it. A missing
// credential yields *model.ConfigurationError. If attaching fails the hosted
// session is released before returning.
func (p *Provider) Open(ctx context.Context) (*Session, error) {
	if err := p.creds.Validate(); err != nil {
		return nil, err
	}

	hosted, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*browserbase.Session, error) {
		return p.api.CreateSession(ctx, p.sessionRequest())
	})
	if err != nil {
		return nil, eris.Wrap(err, "browser: create session")
	}

	s := &Session{
		id:        hosted.ID,
		api:       p.api,
		extractor: p.extractor,
		idle:      p.settings.NetworkIdle,
		release:   p.releaseRetry(),
	}

	drv, err := p.connect(ctx, hosted.ConnectURL, p.settings)
	if err != nil {
		s.Close(ctx)
		return nil, eris.Wrapf(err, "browser: connect session %s", hosted.ID)
	}
	s.drv = drv

	zap.L().Info("browser: session opened", zap.String("session_id", hosted.ID))
	return s, nil
}

func (p *Provider) sessionRequest() browserbase.CreateSessionRequest {
	return browserbase.CreateSessionRequest{
		ProjectID: p.creds.BrowserProjectID,
		BrowserSettings: browserbase.BrowserSettings{
			Viewport: browserbase.Viewport{
				Width:  p.settings.ViewportWidth,
				Height: p.settings.ViewportHeight,
			},
			Fingerprint: &browserbase.Fingerprint{
				Browsers:         []string{"chrome"},
				Devices:          []string{"desktop"},
				OperatingSystems: []string{"windows"},
				Locales:          []string{p.settings.Locale},
				HTTPVersion:      "2",
				Screen: &browserbase.Screen{
					MaxHeight: 1080,
					MaxWidth:  1920,
					MinHeight: 768,
					MinWidth:  1024,
				},
			},
			BlockAds: p.settings.BlockAds,
		},
		Proxies: p.settings.Proxies,
	}
}

func (p *Provider) releaseRetry() resilience.RetryConfig {
	cfg := p.retry
	cfg.OnRetry = resilience.RetryLogger("browserbase", "release_session")
	return cfg
}

func retryable(err error) bool {
	var apiErr *browserbase.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}
