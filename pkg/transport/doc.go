// Package transport defines the generic HTTP execution contract the SDK
// issues requests through.
//
// The API client builds a Request (method, path, headers, query, body
// variant) and receives a Response (status, headers, raw bytes). The
// default implementation wraps net/http; platform adapters can supply
// their own Transport without touching the API layer.
package transport
