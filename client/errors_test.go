package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		err      ClientError
		expected ErrorType
		contains string
	}{
		{
			name:     "api error",
			err:      NewAPIError("not found", 404, []byte(`{"error":"missing"}`)),
			expected: APIError,
			contains: "status: 404",
		},
		{
			name:     "network error",
			err:      NewNetworkError("connect failed", errors.New("connection refused")),
			expected: NetworkError,
			contains: "connection refused",
		},
		{
			name:     "timeout error",
			err:      NewTimeoutError("attempt deadline exceeded", 5*time.Second),
			expected: TimeoutError,
			contains: "5s",
		},
		{
			name:     "circuit open error",
			err:      NewCircuitOpenError("backend.test", "open"),
			expected: CircuitBreakerError,
			contains: `"backend.test" is open`,
		},
		{
			name:     "rate limit error",
			err:      NewRateLimitError("backend.test"),
			expected: RateLimitError,
			contains: "exhausted",
		},
		{
			name:     "cancellation error",
			err:      NewCancellationError(context.Canceled),
			expected: CancellationError,
			contains: "context canceled",
		},
		{
			name:     "interceptor error",
			err:      NewInterceptorError("decode failed", "response", errors.New("bad json")),
			expected: InterceptorError,
			contains: "stage: response",
		},
		{
			name:     "validation error",
			err:      NewValidationError("path cannot be empty", "path"),
			expected: ValidationError,
			contains: "field: path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Type())
			assert.True(t, IsErrorType(tt.err, tt.expected))
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestIsErrorType(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.False(t, IsErrorType(nil, APIError))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsErrorType(errors.New("boom"), NetworkError))
	})

	t.Run("mismatched type", func(t *testing.T) {
		assert.False(t, IsErrorType(NewAPIError("x", 500, nil), NetworkError))
	})

	t.Run("wrapped client error", func(t *testing.T) {
		wrapped := fmt.Errorf("call failed: %w", NewTimeoutError("deadline", time.Second))
		assert.True(t, IsErrorType(wrapped, TimeoutError))
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"timeout", NewTimeoutError("deadline", time.Second), true},
		{"network", NewNetworkError("refused", nil), true},
		{"api 500", NewAPIError("server", 500, nil), true},
		{"api 503", NewAPIError("unavailable", 503, nil), true},
		{"api 400", NewAPIError("bad request", 400, nil), false},
		{"api 404", NewAPIError("missing", 404, nil), false},
		{"api 429", NewAPIError("throttled", 429, nil), false},
		{"circuit open", NewCircuitOpenError("k", "open"), false},
		{"rate limited", NewRateLimitError("k"), false},
		{"canceled", NewCancellationError(context.Canceled), false},
		{"validation", NewValidationError("bad", "path"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestStatusCode(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		status, ok := StatusCode(NewAPIError("conflict", 409, nil))
		require.True(t, ok)
		assert.Equal(t, 409, status)
	})

	t.Run("wrapped api error", func(t *testing.T) {
		err := fmt.Errorf("request: %w", NewAPIError("gone", 410, nil))
		status, ok := StatusCode(err)
		require.True(t, ok)
		assert.Equal(t, 410, status)
	})

	t.Run("non-api error", func(t *testing.T) {
		_, ok := StatusCode(NewNetworkError("refused", nil))
		assert.False(t, ok)
	})
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(204))
	assert.True(t, IsSuccessStatus(299))
	assert.False(t, IsSuccessStatus(199))
	assert.False(t, IsSuccessStatus(300))
	assert.False(t, IsSuccessStatus(404))
	assert.False(t, IsSuccessStatus(500))
}

func TestErrorStats(t *testing.T) {
	t.Run("annotate fills accounting", func(t *testing.T) {
		err := NewNetworkError("refused", nil)
		out := annotate(err, 3, 250*time.Millisecond)
		assert.Same(t, err, out.(ClientError))
		assert.Equal(t, 3, err.Attempts())
		assert.Equal(t, 250*time.Millisecond, err.Elapsed())
	})

	t.Run("unannotated errors report zero", func(t *testing.T) {
		err := NewAPIError("x", 404, nil)
		assert.Zero(t, err.Attempts())
		assert.Zero(t, err.Elapsed())
	})
}

func TestErrorUnwrap(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewNetworkError("transport", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("cancellation", func(t *testing.T) {
		err := NewCancellationError(context.Canceled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("interceptor", func(t *testing.T) {
		cause := errors.New("bad payload")
		err := NewInterceptorError("decode", "response", cause)
		assert.ErrorIs(t, err, cause)
	})
}
