package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Supported request methods.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
	MethodPatch  = http.MethodPatch
)

// Request is a generic HTTP request the transport executes.
type Request struct {
	// Method is one of GET, POST, PUT, DELETE, PATCH.
	Method string

	// Path is the URL path relative to the transport's base URL.
	Path string

	// Headers are request headers. May be nil.
	Headers map[string]string

	// Query are query parameters. May be nil.
	Query url.Values

	// Body is the request body variant. Nil means no body.
	Body Body
}

// Response is a generic HTTP response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response headers.
	Headers http.Header

	// Body is the full response body.
	Body []byte
}

// Header returns the first value of the named response header.
func (r *Response) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// Transport executes generic HTTP requests.
//
// A Transport error is a transport fault (connectivity, timeout, TLS);
// responses with error status codes are returned as *Response, not as
// errors. Classification of HTTP-level failures belongs to the API layer.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}
