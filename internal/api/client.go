// Package api provides the client for the Claude OAuth usage endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Custom errors for different failure modes. Callers treat every error as
// "no snapshot available"; ErrUnauthorized additionally signals that the
// cached token may be stale.
var (
	ErrUnauthorized    = errors.New("api: unauthorized - token rejected")
	ErrServerError     = errors.New("api: server error")
	ErrNetworkError    = errors.New("api: network error")
	ErrInvalidResponse = errors.New("api: invalid response")
)

const (
	defaultBaseURL = "https://api.anthropic.com/api/oauth/usage"

	// maxResponseBytes bounds the body read; the usage payload is tiny.
	maxResponseBytes = 1 << 20
)

// Client is an HTTP client for the usage endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets a custom timeout (for testing).
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithClock sets a custom time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new usage API client.
func NewClient(version string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	client := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:          1,
				MaxIdleConnsPerHost:   1,
				ResponseHeaderTimeout: 10 * time.Second,
				IdleConnTimeout:       10 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ForceAttemptHTTP2:     true,
			},
		},
		baseURL:   defaultBaseURL,
		userAgent: "ccline/" + version,
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// FetchUsage retrieves the current usage windows using the given bearer
// token. Exactly one request is issued per call.
func (c *Client) FetchUsage(ctx context.Context, token string) (*UsageSnapshot, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-beta", "oauth-2025-04-20")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("fetching usage",
		"url", c.baseURL,
		"token", redactToken(token),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("usage response received", "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusOK:
		// Continue to parse response
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, ErrServerError
	default:
		return nil, fmt.Errorf("api: unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrInvalidResponse, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrInvalidResponse)
	}

	snapshot, err := parseUsageResponse(body, c.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return snapshot, nil
}

// redactToken masks the token for logging.
func redactToken(token string) string {
	if token == "" {
		return "(empty)"
	}
	if len(token) < 12 {
		return "***...***"
	}
	return token[:7] + "***...***" + token[len(token)-3:]
}
