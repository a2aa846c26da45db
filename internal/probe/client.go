package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize bounds how much of a response is read for extraction.
const maxBodySize = 1 << 20

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
	defaultRequestTimeout      = 10 * time.Second
)

// Request describes one probe request.
type Request struct {
	// Method is GET, HEAD or POST. Empty means GET.
	Method string

	URL     string
	Headers map[string]string

	// Timeout bounds the whole request. Zero means 10s.
	Timeout time.Duration
}

// Response is what a probe observed.
//
// Err is set when no usable response was received; StatusCode is zero in
// that case unless the failure happened while reading the body.
type Response struct {
	Body       []byte
	StatusCode int
	Latency    time.Duration
	Err        error
}

// Client performs probe requests over a shared connection pool.
//
// Timeouts are applied per request through the context, so targets with
// different timeouts share one client.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a [Client] with bounded connection pooling.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Do performs req and never returns a separate error: failures are reported
// in [Response.Err] so callers can map them to a state directly.
func (c *Client) Do(ctx context.Context, req Request) Response {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	failed := func(code int, err error) Response {
		return Response{StatusCode: code, Latency: time.Since(start), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return failed(0, fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return failed(0, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return failed(resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close drops idle pooled connections. The client stays usable.
// Safe to call on a nil client and more than once.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
