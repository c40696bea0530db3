package client

import (
	"time"
)

// Retry policy defaults.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultFactor       = 2.0
)

// defaultRetryableStatusCodes are the statuses retried with backoff.
var defaultRetryableStatusCodes = []int{408, 429, 500, 502, 503, 504}

// RetryPolicy controls retry behavior for API calls. The zero value
// uses the defaults.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// Factor is the backoff multiplier between retries.
	Factor float64

	// RetryableStatusCodes lists the HTTP statuses worth retrying.
	RetryableStatusCodes []int
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Factor <= 1 {
		p.Factor = DefaultFactor
	}
	if p.RetryableStatusCodes == nil {
		p.RetryableStatusCodes = defaultRetryableStatusCodes
	}
	return p
}

// retryable reports whether the status code is worth retrying.
func (p RetryPolicy) retryable(status int) bool {
	for _, code := range p.RetryableStatusCodes {
		if code == status {
			return true
		}
	}
	return false
}

// delay returns the backoff before retry number n (0-based).
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < n; i++ {
		d = time.Duration(float64(d) * p.Factor)
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
