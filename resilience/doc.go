// Package resilience provides the failure-handling mechanisms composed by
// the backend client: per-key circuit breakers, per-key token-bucket rate
// limiting, and retry backoff policies.
//
// # Circuit Breaker
//   - Per-key state machine (CLOSED -> OPEN -> HALF_OPEN -> CLOSED|OPEN).
//   - Trips when the sample count reaches VolumeThreshold and the failure
//     ratio (or absolute failure count) reaches FailureThreshold.
//   - OPEN -> HALF_OPEN happens lazily on the next gate check after
//     ResetTimeout; no background timers are used.
//   - HALF_OPEN admits a bounded number of trial requests (default 1).
//
// # Rate Limiter
//   - Token bucket built on golang.org/x/time/rate, one bucket per key,
//     created lazily with a full burst.
//   - TryAcquire never blocks; a false result means "rate limited now".
//
// # Retry Policy
//   - Exponential backoff: BaseDelay * Multiplier^attempt, capped at
//     MaxDelay. Delays are deterministic unless a JitterFunc is injected.
//   - Only errors accepted by RetryIf consume retry budget.
//
// All state is refreshed lazily at the moment of use, so an idle client
// schedules no work. Per-key state is independently locked; requests
// against different keys never contend.
package resilience
