// Package client is the typed API client for the chat backend.
//
// Every response travels in a wire envelope: a success carries data and
// the server-side duration, a failure carries a structured error that is
// surfaced as an apierror.Error. The client tracks rate-limit headers
// from each response, retries retryable statuses with exponential
// backoff, and on a 401 refreshes the session token and retries the
// request exactly once.
package client
