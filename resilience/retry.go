package resilience

import (
	"math"
	"time"
)

const (
	// DefaultRetryDelay is the default base backoff delay.
	DefaultRetryDelay = 1 * time.Second
	// DefaultMaxDelay caps the backoff delay between attempts.
	DefaultMaxDelay = 30 * time.Second
	// DefaultMultiplier is the default exponential backoff multiplier.
	DefaultMultiplier = 2.0
)

// JitterFunc perturbs a computed backoff delay. The zero policy applies
// no jitter, which keeps DelayFor deterministic for a given attempt.
type JitterFunc func(time.Duration) time.Duration

// Policy decides whether a failed attempt is retried and how long to wait
// before the next one. A policy is immutable and safe for concurrent use.
type Policy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int

	// BaseDelay is the backoff delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// Multiplier grows the delay exponentially per attempt.
	Multiplier float64

	// RetryIf reports whether an error is worth retrying. A nil RetryIf
	// retries every non-nil error.
	RetryIf func(error) bool

	// Jitter, when set, perturbs each computed delay.
	Jitter JitterFunc
}

// NewPolicy builds a policy allowing retries additional attempts beyond
// the first, with exponential backoff from baseDelay.
func NewPolicy(retries int, baseDelay time.Duration) Policy {
	if retries < 0 {
		retries = 0
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryDelay
	}
	return Policy{
		MaxAttempts: retries + 1,
		BaseDelay:   baseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// ShouldRetry reports whether the attempt with the given zero-based index
// should be followed by another one. It is false once the budget is
// exhausted or when the error is not retryable.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt+1 >= p.maxAttempts() {
		return false
	}
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return true
}

// DelayFor returns the backoff delay after the attempt with the given
// zero-based index: BaseDelay * Multiplier^attempt, capped at MaxDelay.
func (p Policy) DelayFor(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultRetryDelay
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = DefaultMultiplier
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	d := time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	if p.Jitter != nil {
		d = p.Jitter(d)
	}
	return d
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}
