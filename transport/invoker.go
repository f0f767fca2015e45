package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request describes a single API call to the Carthooks host.
type Request struct {
	// Method is the HTTP method (GET, POST, ...).
	Method string

	// Path is the path relative to the configured base URL (e.g. "/open/api/v1/me").
	Path string

	// Query holds optional query parameters appended to the path.
	Query url.Values

	// Body is JSON-encoded as the request body when non-nil.
	Body any

	// Bearer is set as "Authorization: Bearer <token>" when non-empty.
	Bearer string
}

// Response is the raw outcome of an API call. Status inspection and body
// decoding are left to the caller; only transport-level failures are errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// TraceID is the server-assigned trace identifier, if any.
	TraceID string
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("transport: decode response body: %w", err)
	}
	return nil
}

// Client performs JSON requests against a single API host.
// It is safe for concurrent use; construct it with Builder.
type Client struct {
	baseURL   string
	hc        *http.Client
	userAgent string
	logger    zerolog.Logger
}

// Invoke executes a single request and returns the raw response.
// Non-2xx statuses are returned as a Response, not an error; only failures to
// reach the host (connect, timeout, cancelled context) produce an error.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
		TraceID:    httpResp.Header.Get("X-Trace-Id"),
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Msg("api request")

	return resp, nil
}

// BaseURL returns the host this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections held by the underlying HTTP client.
// The client must not be used after Close.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSuffix(raw, "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("transport: invalid base URL %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("transport: base URL %q must be absolute", raw)
	}
	return trimmed, nil
}
