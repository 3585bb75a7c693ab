package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"eventease/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const userAgent = "eventease-cli/1.0"

// Client talks to the EventEase backend. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
		}
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for baseURL. An empty baseURL yields an
// unconfigured client (see Configured).
func NewClient(logger *slog.Logger, baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a backend URL is set. When it is not, list reads
// (ListEvents, MyEvents, AttendingEvents) return an empty result and every
// other operation returns a *ConfigurationError.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	op     string
	method string
	path   string
	token  string
	body   any
}

// do sends req and decodes a successful JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	if !c.Configured() {
		return &ConfigurationError{Op: req.op}
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", req.op, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.op, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		(&oauth2.Token{AccessToken: req.token}).SetAuthHeader(httpReq)
	}

	c.logger.Debug("API request", "op", req.op, "method", req.method, "path", req.path, "requestID", requestID)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.op, 0, time.Since(start))
		return &NetworkError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(req.op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := &HTTPError{Op: req.op, StatusCode: resp.StatusCode, Detail: readDetail(resp.Body, resp.StatusCode)}
		c.logger.Debug("API request failed", "op", req.op, "status", resp.StatusCode, "detail", herr.Detail, "requestID", requestID)
		return herr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.op, err)
	}
	return nil
}

// readDetail extracts a string `detail` from an error body.
func readDetail(r io.Reader, status int) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return genericDetail(status)
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil || detail == "" {
		return genericDetail(status)
	}
	return detail
}
