// Package client implements the UE profile REST API client used by the
// console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
	"github.com/jaydenhoang5291/ue-profile/internal/models"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// maxResponseSize bounds the response bodies read by the client.
const maxResponseSize = 64 << 20

// Sentinel errors. Every *APIError matches ErrNetworkFailure and, when the
// server answered, the sentinel of its status.
var (
	// ErrNetworkFailure marks any failed call to the repository.
	ErrNetworkFailure = errors.New("network failure")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for 409 responses.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest is returned for 400 responses.
	ErrBadRequest = errors.New("bad request")
)

// APIError describes a failed API call. StatusCode is zero when no
// response was received.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Kind       string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Kind != "":
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
}

// Unwrap returns ErrNetworkFailure and the underlying cause.
func (e *APIError) Unwrap() []error {
	errs := []error{ErrNetworkFailure}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root of the API, e.g. http://localhost:8080
	BaseURL string

	// Token is sent as bearer token when set
	Token string

	// Timeout is the HTTP client timeout
	Timeout time.Duration

	// RetryAttempts is the number of retries of failed GET requests
	RetryAttempts int

	// RetryDelay is the delay between retry attempts
	RetryDelay time.Duration

	// UserAgent overrides the default User-Agent
	UserAgent string

	// HTTPClient replaces the default HTTP client
	HTTPClient *http.Client

	// Logger provides structured logging
	Logger *zap.Logger
}

// Client provides access to the UE profile REST API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	userAgent     string
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// New creates a new API client with the provided configuration.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "uectl/1.0"
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		token:         cfg.Token,
		userAgent:     userAgent,
		retryAttempts: max(cfg.RetryAttempts, 0),
		retryDelay:    cfg.RetryDelay,
		logger:        logger,
	}, nil
}

// List returns the profiles matching q, oldest first.
func (c *Client) List(ctx context.Context, q models.ProfileQuery) ([]*profile.UeProfile, error) {
	path := "/ue_profiles"
	if params := q.ToQueryParams(); len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out []*profile.UeProfile
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the profile stored under supi.
func (c *Client) Get(ctx context.Context, supi string) (*profile.UeProfile, error) {
	var out profile.UeProfile
	if err := c.do(ctx, http.MethodGet, profilePath(supi), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a batch of profiles. batch must be an array document.
func (c *Client) Create(ctx context.Context, batch document.Value) ([]*profile.UeProfile, error) {
	if batch.Kind() != document.KindArray {
		return nil, fmt.Errorf("create: batch must be an array, got %s", batch.Kind())
	}
	var out []*profile.UeProfile
	if err := c.do(ctx, http.MethodPost, "/ue_profiles", batch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Generate asks the server to generate and store profiles from spec.
func (c *Client) Generate(ctx context.Context, spec document.Value) ([]*profile.UeProfile, error) {
	var out []*profile.UeProfile
	if err := c.do(ctx, http.MethodPost, "/ue_profiles/generate", spec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the profile stored under supi with payload.
func (c *Client) Update(ctx context.Context, supi string, payload document.Value) (*profile.UeProfile, error) {
	var out profile.UeProfile
	if err := c.do(ctx, http.MethodPut, profilePath(supi), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the profile stored under supi.
func (c *Client) Delete(ctx context.Context, supi string) error {
	return c.do(ctx, http.MethodDelete, profilePath(supi), nil, nil)
}

// Export returns the profile stored under supi as YAML.
func (c *Client) Export(ctx context.Context, supi string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, profilePath(supi)+"/export", nil, "application/yaml")
	if err != nil {
		return nil, err
	}
	defer c.closeBody(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.transportError(http.MethodGet, profilePath(supi)+"/export", fmt.Errorf("failed to read response body: %w", err))
	}
	if resp.StatusCode >= 400 {
		return nil, responseError(http.MethodGet, profilePath(supi)+"/export", resp.StatusCode, body)
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func profilePath(supi string) string {
	return "/ue_profiles/" + url.PathEscape(supi)
}

// do sends a JSON request and decodes a JSON response into target.
func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, payload, "application/json")
	if err != nil {
		return err
	}
	defer c.closeBody(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return c.transportError(method, path, fmt.Errorf("failed to read response body: %w", err))
	}
	if resp.StatusCode >= 400 {
		return responseError(method, path, resp.StatusCode, data)
	}

	if target != nil && len(data) > 0 {
		if err := json.Unmarshal(data, target); err != nil {
			return c.transportError(method, path, fmt.Errorf("failed to parse response: %w", err))
		}
	}
	return nil
}

// send performs the request. GET requests are retried on transport
// errors, 5xx and 429 responses.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, accept string) (*http.Response, error) {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.retryAttempts
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			c.logger.Debug("retrying request",
				zap.Int("attempt", attempt),
				zap.String("method", method),
				zap.String("path", path),
			)
			select {
			case <-ctx.Done():
				return nil, c.transportError(method, path, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		req, err := c.newRequest(ctx, method, path, payload, accept)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = c.transportError(method, path, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		c.logger.Debug("API request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(start)),
		)

		if attempt < attempts-1 && (resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests) {
			lastErr = &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: resp.Status}
			c.closeBody(resp)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, accept string) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Warn("failed to close response body", zap.Error(err))
	}
}

func (c *Client) transportError(method, path string, err error) error {
	c.logger.Debug("API request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err),
	)
	return &APIError{Method: method, Path: path, Err: err}
}

// responseError builds the error of a 4xx or 5xx response, using the
// server's error body when it has one.
func responseError(method, path string, status int, body []byte) error {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status, Err: statusError(status)}

	var resp models.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		apiErr.Kind = resp.Error
		apiErr.Message = resp.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func statusError(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}
