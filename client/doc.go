// Package client provides the resilient outbound HTTP core used to talk
// to the backend service. Each logical request composes four independent
// failure-handling mechanisms around the dispatch:
//
//   - a per-key token-bucket rate limiter (gate, never blocks)
//   - a per-key circuit breaker (gate, lazy state transitions)
//   - a per-attempt timeout/cancellation boundary
//   - a bounded retry policy with exponential backoff
//
// plus an ordered interceptor chain for request/response transformation.
//
// # Retries
//   - Controlled via Builder.WithRetries(maxRetries, retryDelay).
//   - Retries occur on transport errors, per-attempt timeouts, and 5xx
//     responses. 4xx responses, gate rejections, and caller cancellation
//     are terminal on first occurrence.
//   - Backoff is exponential (retryDelay * 2^attempt, capped at 30s) and
//     deterministic unless a jitter function is injected.
//
// # Outcome classification
//   - 2xx-4xx count as circuit breaker successes by default; only 5xx,
//     timeouts, and network failures count as failures. Override with
//     Builder.WithFailureStatus.
//   - Caller cancellation is never retried and never counted against the
//     breaker; it reflects caller intent, not target health.
//
// # Interceptors
//   - Request interceptors run in registration order on every attempt,
//     before the gates, so per-attempt headers (request IDs) refresh.
//   - Response interceptors run only on the final accepted response.
//   - Interceptors transform descriptor/response values and never touch
//     retry, circuit, or rate-limit state.
//
// Every terminal error is typed (see errors.go) and carries the attempt
// count and elapsed time of the logical call.
package client
