// Package browserbase is a minimal client for the Browserbase sessions API,
// which hosts remote Chrome instances reachable over the DevTools protocol.
package browserbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.browserbase.com/v1"

// Client defines the session operations used by the collector.
type Client interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ReleaseSession(ctx context.Context, id string) error
}

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	ProjectID       string          `json:"projectId"`
	BrowserSettings BrowserSettings `json:"browserSettings"`
	Proxies         bool            `json:"proxies"`
	KeepAlive       bool            `json:"keepAlive,omitempty"`
	Timeout         int             `json:"timeout,omitempty"` // seconds
}

// BrowserSettings configures the remote browser.
type BrowserSettings struct {
	Viewport    Viewport     `json:"viewport"`
	Fingerprint *Fingerprint `json:"fingerprint,omitempty"`
	BlockAds    bool         `json:"blockAds"`
}

// Viewport is the browser window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Fingerprint constrains the generated browser fingerprint.
type Fingerprint struct {
	Browsers         []string `json:"browsers,omitempty"`
	Devices          []string `json:"devices,omitempty"`
	OperatingSystems []string `json:"operatingSystems,omitempty"`
	Locales          []string `json:"locales,omitempty"`
	HTTPVersion      string   `json:"httpVersion,omitempty"`
	Screen           *Screen  `json:"screen,omitempty"`
}

// Screen bounds the fingerprinted screen size.
type Screen struct {
	MaxHeight int `json:"maxHeight"`
	MaxWidth  int `json:"maxWidth"`
	MinHeight int `json:"minHeight"`
	MinWidth  int `json:"minWidth"`
}

// Session is a hosted browser session.
type Session struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Status     string    `json:"status"`
	ConnectURL string    `json:"connectUrl"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type updateSessionRequest struct {
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

// APIError is returned when Browserbase responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("browserbase: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey    string
	projectID string
	baseURL   string
	http      *http.Client
}

// NewClient creates a new Browserbase client scoped to one project.
func NewClient(apiKey, projectID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		projectID: projectID,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	if req.ProjectID == "" {
		req.ProjectID = c.projectID
	}
	var resp Session
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &resp); err != nil {
		return nil, eris.Wrap(err, "browserbase: create session")
	}
	if resp.ConnectURL == "" {
		return nil, eris.Errorf("browserbase: session %s has no connect url", resp.ID)
	}
	return &resp, nil
}

func (c *httpClient) GetSession(ctx context.Context, id string) (*Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &resp); err != nil {
		return nil, eris.Wrapf(err, "browserbase: get session %s", id)
	}
	return &resp, nil
}

func (c *httpClient) ReleaseSession(ctx context.Context, id string) error {
	body := updateSessionRequest{ProjectID: c.projectID, Status: "REQUEST_RELEASE"}
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id, body, nil); err != nil {
		return eris.Wrapf(err, "browserbase: release session %s", id)
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("X-BB-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
