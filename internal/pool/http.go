package pool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPOptions configures one request-client pool entry.
type HTTPOptions struct {
	ID             string
	DefaultHeaders map[string]string
}

// HTTPClient is a pooled request client carrying default headers. It has
// no timeout of its own; callers bound requests through ctx if they need
// to.
type HTTPClient struct {
	id      string
	client  *http.Client
	headers map[string]string
}

// Response is the slice of an HTTP exchange the dispatcher cares about.
type Response struct {
	Status  int
	Body    []byte
	Headers http.Header
}

func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	return &HTTPClient{
		id:      opts.ID,
		client:  &http.Client{},
		headers: opts.DefaultHeaders,
	}
}

// Do performs one request with the pool's default headers. jsonBody adds
// Content-Type: application/json when a body is sent; default headers are
// applied first so the explicit type wins.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, jsonBody bool) (*Response, error) {
	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if jsonBody && len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %s %s: %w", method, url, err)
	}
	return &Response{Status: resp.StatusCode, Body: b, Headers: resp.Header}, nil
}
