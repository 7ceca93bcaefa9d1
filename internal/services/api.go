package services

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

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floater/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.spotify.com"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 10 << 20
)

// ClientOpts configures a [SpotifyClient].
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	// RequestsPerSecond throttles outgoing calls locally; zero means unlimited.
	RequestsPerSecond float64
	Logger            *log.Logger
}

// SpotifyClient is a typed client for the player and library endpoints.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *log.Logger
}

var _ Player = (*SpotifyClient)(nil)

// NewSpotifyClient creates a client. A nil HTTPClient gets one with [DefaultTimeout].
func NewSpotifyClient(opts ClientOpts) *SpotifyClient {
	c := &SpotifyClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.logger == nil {
		c.logger = shared.NopLogger()
	}
	c.logger = c.logger.With("component", "spotify")
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(opts.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// request performs an authenticated call and decodes a required JSON body into T.
func request[T any](ctx context.Context, c *SpotifyClient, method, path string) (T, error) {
	var out T

	body, err := c.do(ctx, method, path)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, fmt.Errorf("%w: %s %s", shared.ErrNoData, method, path)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %s %s: %v", shared.ErrDecode, method, path, err)
	}
	return out, nil
}

// call performs an authenticated call whose body, if any, is ignored.
func (c *SpotifyClient) call(ctx context.Context, method, path string) error {
	_, err := c.do(ctx, method, path)
	return err
}

func (c *SpotifyClient) do(ctx context.Context, method, path string) ([]byte, error) {
	token, ok := c.tokens.AccessToken()
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrInvalidURL, c.baseURL+path)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	return c.send(req, path)
}

// send waits on the limiter, performs req and returns the body of a 2xx response.
func (c *SpotifyClient) send(req *http.Request, label string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", label, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrTransport, req.Method, label, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s: %w", shared.ErrTransport, req.Method, label, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: %s %s body exceeds %d bytes", shared.ErrBadResponse, req.Method, label, maxBodySize)
	}

	c.logger.Debug("request", "method", req.Method, "path", label, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shared.BadResponseError{StatusCode: resp.StatusCode, Method: req.Method, Path: label}
	}
	return body, nil
}
