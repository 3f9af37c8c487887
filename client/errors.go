package client

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents the typed errors returned by the backend client.
// Every terminal error reports how many attempts were made and how much
// wall-clock time the logical request consumed.
type ClientError interface {
	error
	Type() ErrorType
	Attempts() int
	Elapsed() time.Duration
}

// ErrorType defines the category of client error.
type ErrorType string

const (
	// APIError is a response with a non-2xx status code.
	APIError ErrorType = "api"
	// NetworkError is a transport-level failure (connect, DNS, broken pipe).
	NetworkError ErrorType = "network"
	// TimeoutError means the per-attempt deadline fired.
	TimeoutError ErrorType = "timeout"
	// CircuitBreakerError means the circuit gate rejected the call before dispatch.
	CircuitBreakerError ErrorType = "circuit_open"
	// RateLimitError means the token bucket was exhausted before dispatch.
	RateLimitError ErrorType = "rate_limited"
	// CancellationError means the caller's context was canceled.
	CancellationError ErrorType = "canceled"
	// InterceptorError means a registered interceptor failed the call.
	InterceptorError ErrorType = "interceptor"
	// ValidationError means the request descriptor was rejected before dispatch.
	ValidationError ErrorType = "validation"
)

// callStats carries attempt/elapsed accounting shared by all error types.
type callStats struct {
	attempts int
	elapsed  time.Duration
}

func (s *callStats) Attempts() int          { return s.attempts }
func (s *callStats) Elapsed() time.Duration { return s.elapsed }

func (s *callStats) setStats(attempts int, elapsed time.Duration) {
	s.attempts = attempts
	s.elapsed = elapsed
}

type statsSetter interface {
	setStats(attempts int, elapsed time.Duration)
}

// annotate fills in attempt/elapsed accounting on a typed error without
// wrapping it.
func annotate(err error, attempts int, elapsed time.Duration) error {
	if s, ok := err.(statsSetter); ok {
		s.setStats(attempts, elapsed)
	}
	return err
}

// apiError represents a non-2xx response.
type apiError struct {
	callStats
	message    string
	statusCode int
	body       []byte
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error: %s (status: %d)", e.message, e.statusCode)
}

func (e *apiError) Type() ErrorType { return APIError }

// StatusCode returns the response status code.
func (e *apiError) StatusCode() int { return e.statusCode }

// Body returns the raw response body.
func (e *apiError) Body() []byte { return e.body }

// networkError represents a transport-level failure.
type networkError struct {
	callStats
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType { return NetworkError }
func (e *networkError) Unwrap() error   { return e.wrapped }

// timeoutError represents a per-attempt deadline firing.
type timeoutError struct {
	callStats
	message string
	limit   time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.limit)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }

// Limit returns the per-attempt timeout that fired.
func (e *timeoutError) Limit() time.Duration { return e.limit }

// circuitOpenError represents a circuit gate rejection.
type circuitOpenError struct {
	callStats
	key   string
	state string
}

func (e *circuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker error: circuit for %q is %s", e.key, e.state)
}

func (e *circuitOpenError) Type() ErrorType { return CircuitBreakerError }

// Key returns the breaker key that rejected the call.
func (e *circuitOpenError) Key() string { return e.key }

// rateLimitError represents a token bucket rejection.
type rateLimitError struct {
	callStats
	key string
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limit error: bucket for %q is exhausted", e.key)
}

func (e *rateLimitError) Type() ErrorType { return RateLimitError }

// Key returns the limiter key that rejected the call.
func (e *rateLimitError) Key() string { return e.key }

// cancellationError represents the caller's context firing.
type cancellationError struct {
	callStats
	wrapped error
}

func (e *cancellationError) Error() string {
	return fmt.Sprintf("cancellation error: %v", e.wrapped)
}

func (e *cancellationError) Type() ErrorType { return CancellationError }
func (e *cancellationError) Unwrap() error   { return e.wrapped }

// interceptorError represents an interceptor failing the call.
type interceptorError struct {
	callStats
	message string
	stage   string
	wrapped error
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }
func (e *interceptorError) Unwrap() error   { return e.wrapped }

// validationError represents a request descriptor rejection.
type validationError struct {
	callStats
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType { return ValidationError }

// NewAPIError creates a new API error from a non-2xx response.
func NewAPIError(message string, statusCode int, body []byte) ClientError {
	return &apiError{message: message, statusCode: statusCode, body: body}
}

// NewNetworkError creates a new network error.
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{message: message, wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(message string, limit time.Duration) ClientError {
	return &timeoutError{message: message, limit: limit}
}

// NewCircuitOpenError creates a new circuit-open error.
func NewCircuitOpenError(key, state string) ClientError {
	return &circuitOpenError{key: key, state: state}
}

// NewRateLimitError creates a new rate-limit error.
func NewRateLimitError(key string) ClientError {
	return &rateLimitError{key: key}
}

// NewCancellationError creates a new cancellation error.
func NewCancellationError(cause error) ClientError {
	return &cancellationError{wrapped: cause}
}

// NewInterceptorError creates a new interceptor error.
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, stage: stage, wrapped: wrapped}
}

// NewValidationError creates a new validation error.
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

// IsErrorType checks if an error is of a specific type.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsRetryable reports whether an error may consume retry budget: timeouts,
// network failures, and 5xx responses. Gate rejections, cancellations,
// and 4xx responses are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	switch clientErr.Type() {
	case TimeoutError, NetworkError:
		return true
	case APIError:
		var api *apiError
		return errors.As(err, &api) && api.statusCode >= 500
	default:
		return false
	}
}

// StatusCode extracts the response status code from an API error.
func StatusCode(err error) (int, bool) {
	var api *apiError
	if errors.As(err, &api) {
		return api.statusCode, true
	}
	return 0, false
}

// IsSuccessStatus checks if a status code represents success (2xx).
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
