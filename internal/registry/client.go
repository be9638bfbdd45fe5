// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the crates.io API host.
	DefaultBaseURL = "https://crates.io"

	// DefaultCDNURL serves published .crate archives.
	DefaultCDNURL = "https://static.crates.io/crates"

	// DefaultUserAgent identifies bp to crates.io, which rejects anonymous clients.
	DefaultUserAgent = "battery-pack (https://github.com/battery-pack-rs/battery-pack)"

	// maxJSONResponseBytes is the upper bound on API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var (
	// ErrCrateNotFound is returned for crates or versions the registry does not know.
	ErrCrateNotFound = errors.New("crate not found")

	// ErrRateLimited is returned when the registry answers 429.
	ErrRateLimited = errors.New("rate limited by registry")

	// ErrUpstreamDown is returned for 5xx answers and while a host's breaker is open.
	ErrUpstreamDown = errors.New("registry unavailable")
)

type (
	// Client talks to a crates.io compatible registry.
	Client struct {
		httpClient *http.Client
		baseURL    string
		cdnURL     string
		userAgent  string
		breakers   *breakerSet
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*clientConfig)

	clientConfig struct {
		httpClient *http.Client
		baseURL    string
		cdnURL     string
		userAgent  string
		threshold  int64
	}

	// StatusError carries an unexpected HTTP status.
	StatusError struct {
		URL        string
		StatusCode int
		Body       string
	}
)

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.baseURL = strings.TrimRight(base, "/")
	}
}

// WithCDNURL overrides the archive download base URL.
func WithCDNURL(cdn string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.cdnURL = strings.TrimRight(cdn, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// WithTripThreshold sets how many consecutive upstream failures open a
// host's circuit breaker.
func WithTripThreshold(n int64) ClientOption {
	return func(cfg *clientConfig) {
		cfg.threshold = n
	}
}

// NewClient creates a Client with crates.io defaults.
func NewClient(opts ...ClientOption) *Client {
	cfg := clientConfig{
		baseURL:   DefaultBaseURL,
		cdnURL:    DefaultCDNURL,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = NewHTTPClient(DefaultTimeout)
	}

	return &Client{
		httpClient: cfg.httpClient,
		baseURL:    cfg.baseURL,
		cdnURL:     cfg.cdnURL,
		userAgent:  cfg.userAgent,
		breakers:   newBreakerSet(cfg.threshold),
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// BreakerStates reports the breaker state per host, for diagnostics.
func (c *Client) BreakerStates() map[string]string { return c.breakers.states() }

// get performs a GET guarded by the host's breaker. Only transport errors,
// 5xx answers and undecodable bodies count as breaker failures. On success
// the caller owns resp.Body.
func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	host := hostOf(reqURL)
	breaker := c.breakers.get(host)
	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	var resp *http.Response
	var clientErr error
	err := breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			clientErr = fmt.Errorf("creating request: %w", err)
			return nil
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				clientErr = ctx.Err()
				return nil
			}
			return fmt.Errorf("requesting %s: %w", redactURL(reqURL), err)
		}

		switch {
		case r.StatusCode == http.StatusOK:
			resp = r
			return nil
		case r.StatusCode == http.StatusNotFound:
			_ = r.Body.Close()
			clientErr = fmt.Errorf("%s: %w", redactURL(reqURL), ErrCrateNotFound)
			return nil
		case r.StatusCode == http.StatusTooManyRequests:
			_ = r.Body.Close()
			clientErr = fmt.Errorf("%s: %w", redactURL(reqURL), ErrRateLimited)
			return nil
		case r.StatusCode >= 500:
			_ = r.Body.Close()
			return fmt.Errorf("%s: status %d: %w", redactURL(reqURL), r.StatusCode, ErrUpstreamDown)
		default:
			body, _ := io.ReadAll(io.LimitReader(r.Body, 1024))
			_ = r.Body.Close()
			clientErr = &StatusError{URL: redactURL(reqURL), StatusCode: r.StatusCode, Body: strings.TrimSpace(string(body))}
			return nil
		}
	}, 0)
	if err != nil {
		slog.Debug("registry request failed", "host", host, "error", err)
		return nil, err
	}
	if clientErr != nil {
		return nil, clientErr
	}
	return resp, nil
}

// getJSON GETs reqURL and decodes the JSON body into v.
func (c *Client) getJSON(ctx context.Context, reqURL string, v any) error {
	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", redactURL(reqURL), err)
	}
	return nil
}

// redactURL strips query parameters and fragments from a URL for error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
