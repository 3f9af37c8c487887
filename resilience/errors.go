package resilience

import "errors"

// Sentinel errors surfaced by the gate checks.
var (
	// ErrCircuitOpen is returned by Breaker.Allow while the breaker is open
	// or while all half-open trial slots are taken.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimited is returned by LimiterGroup.Acquire when the bucket
	// cannot cover the requested cost.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")
)
