// Package api is a client for the SecureVibes REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is used when neither WithBaseURL nor SECUREVIBES_API_URL
// is set.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// BaseURLEnv names the environment variable holding the API base URL.
const BaseURLEnv = "SECUREVIBES_API_URL"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Client sends JSON requests to the API and decodes its response envelope.
// Credentials are not handled here; they come from the transport.
type Client struct {
	baseURL    string
	timeout    time.Duration
	transport  http.RoundTripper
	httpClient *http.Client
	logger     *slog.Logger
}

// envelope is the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewClient creates a new API client.
// It reads the base URL from SECUREVIBES_API_URL by default.
// Options can be used to override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: envOrDefault(BaseURLEnv, DefaultBaseURL),
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = &http.Client{
		Transport: c.transport,
		Timeout:   c.timeout,
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request to path, relative to the base URL. A non-nil body is
// encoded as JSON. On success the envelope's data is decoded into out, if
// out is non-nil.
//
// Non-2xx responses and envelopes with success=false return *APIError.
// Failures before a response is received return *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", path, "error", err)
		return &TransportError{Cause: err}
	}
	defer httpResp.Body.Close()

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return &TransportError{Cause: fmt.Errorf("read response body: %w", err)}
	}

	return decodeEnvelope(httpResp.StatusCode, respBody, out)
}

// decodeEnvelope maps a status and body to the caller's result or an error.
func decodeEnvelope(status int, body []byte, out any) error {
	var env envelope
	parseErr := json.Unmarshal(body, &env)

	if status < 200 || status >= 300 {
		msg := http.StatusText(status)
		if parseErr == nil && env.Error != "" {
			msg = env.Error
		}
		return &APIError{StatusCode: status, Message: msg}
	}

	if parseErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, parseErr)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{StatusCode: status, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrInvalidResponse, err)
		}
	}
	return nil
}

// HealthStatus is the server's health report.
type HealthStatus struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// Health queries the server's /health endpoint, which lives at the root of
// the server rather than under the API prefix.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	endpoint := base.ResolveReference(&url.URL{Path: "/health"})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Cause: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
	}

	var status HealthStatus
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxBodySize)).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &status, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
