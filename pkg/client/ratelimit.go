package client

import (
	"strconv"
	"sync"
	"time"

	"github.com/tidechat/tidechat-go/pkg/transport"
)

// DefaultRateLimitThreshold is the remaining-call count at or below
// which the rate limit counts as close to exceeded.
const DefaultRateLimitThreshold = 10

// RateLimitInfo is the rate-limit status reported by the most recent
// response that carried rate-limit headers.
type RateLimitInfo struct {
	// Remaining is the number of calls left in the current window.
	Remaining int

	// Reset is when the window resets.
	Reset time.Time
}

// rateLimitTracker keeps the latest rate-limit headers. Each response
// that carries them replaces the previous snapshot wholesale; responses
// without them leave it untouched.
type rateLimitTracker struct {
	mu   sync.Mutex
	info RateLimitInfo
	seen bool
}

func (t *rateLimitTracker) update(resp *transport.Response) {
	remaining := resp.Header("X-RateLimit-Remaining")
	reset := resp.Header("X-RateLimit-Reset")
	if remaining == "" || reset == "" {
		return
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return
	}

	t.mu.Lock()
	t.info = RateLimitInfo{Remaining: rem, Reset: time.Unix(resetUnix, 0)}
	t.seen = true
	t.mu.Unlock()
}

func (t *rateLimitTracker) current() (RateLimitInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info, t.seen
}

// RateLimit returns the latest observed rate-limit snapshot. The bool is
// false until a response has carried rate-limit headers.
func (c *Client) RateLimit() (RateLimitInfo, bool) {
	return c.rates.current()
}

// IsRateLimitCloseToExceeded reports whether the latest snapshot shows
// the remaining calls at or below threshold. A threshold of zero or less
// means DefaultRateLimitThreshold. False when no snapshot has been
// observed yet.
func (c *Client) IsRateLimitCloseToExceeded(threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultRateLimitThreshold
	}
	info, seen := c.rates.current()
	return seen && info.Remaining <= threshold
}
