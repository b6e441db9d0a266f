// Package transport implements gateway.Client over the management
// service's REST interface.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication and
// client-side throttling.
type Client struct {
	endpoint  string
	http      *http.Client
	auth      Authenticator
	apiKey    string
	limiter   *rate.Limiter
	pageLimit int
	userAgent string
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return &errors.ValidationError{Field: "http_client", Message: "cannot be nil"}
		}
		c.http = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return &errors.ValidationError{Field: "timeout", Value: timeout, Message: "must be positive"}
		}
		c.http.Timeout = timeout
		return nil
	}
}

// WithAuth sets the authenticator and the key it applies.
func WithAuth(auth Authenticator, apiKey string) Option {
	return func(c *Client) error {
		if auth == nil {
			auth = &NoAuth{}
		}
		c.auth = auth
		c.apiKey = apiKey
		return nil
	}
}

// WithRateLimit throttles requests to rps per second with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			c.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithPageLimit sets the page size requested from listings.
func WithPageLimit(limit int) Option {
	return func(c *Client) error {
		if limit <= 0 {
			return &errors.ValidationError{Field: "page_limit", Value: limit, Message: "must be positive"}
		}
		c.pageLimit = limit
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

// New creates a client for the service at endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewValidationError("endpoint", endpoint, "must be an absolute URL")
	}

	c := &Client{
		endpoint:  strings.TrimRight(u.String(), "/"),
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      &NoAuth{},
		limiter:   rate.NewLimiter(rate.Limit(constants.DefaultRateLimit), constants.DefaultRateBurst),
		pageLimit: constants.DefaultPageLimit,
		userAgent: "apisync",
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Endpoint returns the base URL of the service.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// DoWithContext performs an HTTP request after waiting for the rate
// limiter, with authentication and common headers applied.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}

	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	event := logging.FromContext(ctx).Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("Request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("Request completed")
	return resp, nil
}

// CloseIdleConnections closes connections kept alive by the HTTP client.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
