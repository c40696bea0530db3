package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPConfig holds timeouts for the default transport.
type HTTPConfig struct {
	// Timeout is the total per-request timeout.
	Timeout time.Duration

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
}

// DefaultHTTPConfig returns the default timeouts.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:        30 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// HTTPTransport is the default Transport backed by net/http.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport creates a transport for the given base URL.
// A missing scheme defaults to https.
func NewHTTPTransport(baseURL string, cfg HTTPConfig) *HTTPTransport {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultHTTPConfig().Timeout
	}

	inner := http.DefaultTransport
	if cfg.ConnectTimeout > 0 {
		if t, ok := http.DefaultTransport.(*http.Transport); ok {
			clone := t.Clone()
			clone.ResponseHeaderTimeout = cfg.Timeout
			clone.TLSHandshakeTimeout = cfg.ConnectTimeout
			inner = clone
		}
	}

	return &HTTPTransport{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: inner,
		},
	}
}

// BaseURL returns the base URL of the transport.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// Execute implements Transport.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	var (
		contentType string
		bodyReader  io.Reader
	)
	if req.Body != nil {
		var err error
		contentType, bodyReader, err = req.Body.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	u := t.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       data,
	}, nil
}
