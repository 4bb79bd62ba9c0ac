// Package restclient provides a client for the job/task REST service.
package restclient

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
	"github.com/ternarybob/arbor"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/ternarybob/cascade/internal/interfaces"
	"github.com/ternarybob/cascade/internal/observability"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 50

	// HeaderRequestID carries a per-request id for server-side correlation.
	HeaderRequestID = "X-Request-ID"
)

// Client is a job/task service client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// Compile-time assertion
var _ interfaces.RemoteService = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout. Timeouts surface as ordinary request failures.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "cascade",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  arbor.NewNoOpLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Read GETs a collection endpoint; the response is an object keyed by id.
func (c *Client) Read(ctx context.Context, path string, query url.Values, passkey string) (map[string]json.RawMessage, error) {
	records := map[string]json.RawMessage{}
	if err := c.do(ctx, http.MethodGet, path, query, nil, passkey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ReadRecord GETs a single resource into out.
func (c *Client) ReadRecord(ctx context.Context, path string, query url.Values, passkey string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, passkey, out)
}

// Write PUTs body to a single resource.
func (c *Client) Write(ctx context.Context, path string, body interface{}, passkey string) (json.RawMessage, error) {
	var record json.RawMessage
	if err := c.do(ctx, http.MethodPut, path, nil, body, passkey, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// BulkWrite POSTs body to a bulk action endpoint.
func (c *Client) BulkWrite(ctx context.Context, path string, body interface{}, passkey string) error {
	return c.do(ctx, http.MethodPost, path, nil, body, passkey, nil)
}

// Delete removes a sub-resource.
func (c *Client) Delete(ctx context.Context, path string, passkey string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, passkey, nil)
}

// do performs one authenticated JSON request.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, passkey string, out interface{}) error {
	op := method + " " + path

	// Preconditions are checked before touching the network
	if passkey == "" {
		return &PreconditionError{Op: op, Reason: "passkey can't be empty"}
	}
	if body != nil && (method == http.MethodGet || method == http.MethodDelete) {
		return &PreconditionError{Op: op, Reason: "body must be nil for " + method}
	}
	if c.baseURL == "" {
		return &PreconditionError{Op: op, Reason: "service base URL is not configured"}
	}

	ctx, span := observability.StartSpan(ctx, "restclient."+strings.ToLower(method),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	defer span.End()

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Endpoint: path, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		// status filters are sent as a readable a|b list
		reqURL += "?" + strings.ReplaceAll(query.Encode(), "%7C", "|")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &PreconditionError{Op: op, Reason: fmt.Sprintf("failed to encode body: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("failed to create request: %v", err)}
	}

	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+passkey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)

	c.logger.Debug().
		Str("method", method).
		Str("url", reqURL).
		Str("request_id", requestID).
		Msg("Service request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return &TransportError{Endpoint: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    statusMessage(resp.StatusCode, bodyError(data)),
			Endpoint:   path,
		}
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("request_id", requestID).
			Msg("Service request failed")
		span.RecordError(apiErr)
		return apiErr
	}

	if msg := bodyError(data); msg != "" {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg, Endpoint: path}
		span.RecordError(apiErr)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Endpoint: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// bodyError extracts the message of an {"error": "..."} body, or "".
func bodyError(data []byte) string {
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || len(probe.Error) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(probe.Error, &msg); err != nil {
		return ""
	}
	return msg
}
