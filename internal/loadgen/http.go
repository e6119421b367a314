package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with the run's base URL and timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and decodes a JSON body into out when out is not nil.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) (int, error) {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// Post performs a POST request with an optional JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) (int, error) {
	return c.do(ctx, http.MethodPost, path, "", body, out)
}

// PostOnce performs a POST request carrying an Idempotency-Key so a retry
// cannot create a second resource.
func (c *HTTPClient) PostOnce(ctx context.Context, path, key string, body, out any) (int, error) {
	return c.do(ctx, http.MethodPost, path, key, body, out)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) (int, error) {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, key string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Code != "" {
			return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s: %s", ErrUnexpected, method, path, resp.StatusCode, e.Code, e.Message)
		}
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d", ErrUnexpected, method, path, resp.StatusCode)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
