// Package api is the client for the group-chat REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Token is the bearer access token; empty for login and register.
	Token string
	// Timeout bounds each request; zero disables the client-side timeout.
	Timeout time.Duration
	// RPS and Burst configure the shared request limiter; RPS <= 0 disables it.
	RPS    float64
	Burst  int
	Logger zerolog.Logger
	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// Client talks to the chat service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
	opts       Options
}

// NewClient constructs a chat service client.
func NewClient(opts Options) (*Client, error) {
	normalized, err := NormalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := base
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   base,
		}
	}
	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return &Client{
		baseURL: normalized,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter: limiter,
		logger:  opts.Logger.With().Str("component", "api").Logger(),
		opts:    opts,
	}, nil
}

// WithToken returns a client sharing this client's settings and limiter but
// authenticating with token.
func (c *Client) WithToken(token string) (*Client, error) {
	opts := c.opts
	opts.Token = token
	next, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	next.limiter = c.limiter
	return next, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NormalizeBaseURL normalizes a service base URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("api url must include scheme and host (http://host:port)")
	}
	value = strings.TrimRight(value, "/")
	return value, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Str("request_id", requestID).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respData)
	}

	if respBody == nil {
		return nil
	}
	if len(respData) == 0 {
		return nil
	}
	return json.Unmarshal(respData, respBody)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}
