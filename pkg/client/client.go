package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/tidechat/tidechat-go/pkg/apierror"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

// TokenSource supplies bearer tokens for authenticated calls. The
// session manager implements it.
type TokenSource interface {
	// GetValidToken returns the session token, refreshing first when the
	// refresh threshold has been reached.
	GetValidToken(ctx context.Context) (string, error)

	// RefreshToken forces a refresh. Used after a 401 response.
	RefreshToken(ctx context.Context) (string, error)
}

// Recorder receives client instrumentation events. The telemetry
// package provides a Prometheus-backed implementation.
type Recorder interface {
	RequestCompleted(method, path string, status int)
	RetryScheduled(method, path string)
	RateLimitRemaining(remaining float64)
}

type nopRecorder struct{}

func (nopRecorder) RequestCompleted(string, string, int) {}
func (nopRecorder) RetryScheduled(string, string)        {}
func (nopRecorder) RateLimitRemaining(float64)           {}

// Config holds API client configuration.
type Config struct {
	// BaseURL is the backend root, e.g. "https://chat.example.com".
	// Ignored when Transport is set.
	BaseURL string

	// APIKey identifies the application. Sent as X-API-Key on every call.
	APIKey string

	// DeviceID distinguishes this installation's sessions from the same
	// user's sessions on other devices. Sent as X-Device-ID when set.
	DeviceID string

	// Transport overrides the HTTP transport. Tests substitute fakes.
	Transport transport.Transport

	// HTTP configures the default transport when Transport is unset.
	HTTP transport.HTTPConfig

	// Retry controls the retry policy. Zero value uses defaults.
	Retry RetryPolicy

	// Limiter optionally throttles outgoing calls client-side, on top of
	// the server's rate limiting.
	Limiter *rate.Limiter

	// Logger receives diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Metrics receives instrumentation events. Optional.
	Metrics Recorder
}

// Client is the typed API client. Construct with New, then wire a
// TokenSource via SetTokenSource before issuing authenticated calls.
type Client struct {
	transport transport.Transport
	apiKey    string
	deviceID  string
	tokens    TokenSource
	policy    RetryPolicy
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   Recorder
	rates     rateLimitTracker
}

// New creates an API client.
func New(cfg Config) *Client {
	c := &Client{
		transport: cfg.Transport,
		apiKey:    cfg.APIKey,
		deviceID:  cfg.DeviceID,
		policy:    cfg.Retry.withDefaults(),
		limiter:   cfg.Limiter,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	if c.transport == nil {
		c.transport = transport.NewHTTPTransport(cfg.BaseURL, cfg.HTTP)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	return c
}

// SetTokenSource wires the session manager in. The manager and the
// client reference each other (the client is the manager's backend), so
// the source is attached after both are constructed.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// requestID mints a unique id for request correlation.
func (c *Client) requestID() string {
	return ulid.Make().String()
}

// do executes a request with retries and decodes the success envelope
// into out. When authed is true a bearer token is attached and a 401 is
// answered with one forced refresh and one retry.
func (c *Client) do(ctx context.Context, req *transport.Request, authed bool, out any) error {
	reqID := c.requestID()
	refreshed := false

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return apierror.NewTransport("rate limiter wait", err)
			}
		}

		if err := c.prepare(ctx, req, authed, reqID); err != nil {
			return err
		}

		resp, err := c.transport.Execute(ctx, req)
		if err != nil {
			// Transport fault: connectivity or timeout, no response.
			if attempt+1 < c.policy.MaxAttempts {
				if err := c.backoff(ctx, req, attempt); err != nil {
					return err
				}
				continue
			}
			c.metrics.RequestCompleted(req.Method, req.Path, 0)
			return apierror.NewTransport("request failed", err)
		}

		c.rates.update(resp)
		if info, seen := c.rates.current(); seen {
			c.metrics.RateLimitRemaining(float64(info.Remaining))
		}

		if resp.StatusCode < 400 {
			c.metrics.RequestCompleted(req.Method, req.Path, resp.StatusCode)
			return decodeSuccess(resp, out)
		}

		// One forced refresh per request: the 401 retry does not consume
		// a regular attempt.
		if resp.StatusCode == 401 && authed && !refreshed && c.tokens != nil {
			refreshed = true
			if _, err := c.tokens.RefreshToken(ctx); err != nil {
				c.metrics.RequestCompleted(req.Method, req.Path, resp.StatusCode)
				return decodeError(resp).WithCause(err)
			}
			c.logger.Debug("retrying after token refresh", "path", req.Path, "request_id", reqID)
			attempt--
			continue
		}

		if c.policy.retryable(resp.StatusCode) && attempt+1 < c.policy.MaxAttempts {
			if err := c.backoff(ctx, req, attempt); err != nil {
				return err
			}
			continue
		}

		c.metrics.RequestCompleted(req.Method, req.Path, resp.StatusCode)
		apiErr := decodeError(resp)
		c.logger.Debug("api error",
			"path", req.Path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"request_id", reqID,
		)
		return apiErr
	}
}

// prepare sets the per-attempt headers. The token is re-resolved on
// every attempt so a refresh between attempts is picked up.
func (c *Client) prepare(ctx context.Context, req *transport.Request, authed bool, reqID string) error {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	req.Headers["X-Request-ID"] = reqID
	if c.apiKey != "" {
		req.Headers["X-API-Key"] = c.apiKey
	}
	if c.deviceID != "" {
		req.Headers["X-Device-ID"] = c.deviceID
	}
	if authed {
		if c.tokens == nil {
			return apierror.NewNotAuthenticated("client has no token source")
		}
		tok, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			return err
		}
		req.Headers["Authorization"] = "Bearer " + tok
	}
	return nil
}

// backoff sleeps for the attempt's backoff delay or until ctx is done.
func (c *Client) backoff(ctx context.Context, req *transport.Request, attempt int) error {
	delay := c.policy.delay(attempt)
	c.metrics.RetryScheduled(req.Method, req.Path)
	c.logger.Debug("retrying request", "path", req.Path, "attempt", attempt+1, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return apierror.NewTransport("request canceled during backoff", ctx.Err())
	}
}
