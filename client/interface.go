package client

import (
	"context"
	"maps"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/PoisedDok/AetherArena-sub004/resilience"
)

// Client defines the resilient backend client interface.
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)

	AddRequestInterceptor(interceptor RequestInterceptor)
	AddResponseInterceptor(interceptor ResponseInterceptor)

	// CircuitState reports the breaker state for key; an empty key means
	// the default target (the base URL host).
	CircuitState(key string) resilience.State
	CircuitSnapshot(key string) resilience.BreakerSnapshot
	ResetCircuit(key string)

	// LimiterStats reports the token bucket state for key; an empty key
	// means the default target.
	LimiterStats(key string) resilience.LimiterStats
	ResetLimiter(key string)
}

// Transport dispatches a single HTTP request. *net/http.Client satisfies
// it; tests inject stubs.
type Transport interface {
	Do(req *nethttp.Request) (*nethttp.Response, error)
}

// Request is the descriptor for one logical call. Interceptors receive a
// clone and return a (possibly new) descriptor; the descriptor handed to
// dispatch is never mutated afterwards, so retries can safely re-run the
// interceptor chain from the original.
type Request struct {
	// Path is resolved against the client's base URL. An absolute URL is
	// used as-is.
	Path string

	// Query parameters merged into the resolved URL.
	Query url.Values

	// Headers are merged over the client's default headers; keys are
	// case-insensitive and last write wins.
	Headers map[string]string

	// Body is the raw request payload.
	Body []byte

	// Timeout overrides the client's per-attempt timeout for this call.
	Timeout time.Duration

	// TargetKey overrides the breaker/limiter key for this call. It
	// defaults to the resolved URL's host.
	TargetKey string

	// Auth overrides the client's basic-auth credentials for this call.
	Auth *BasicAuth
}

// Clone returns a deep-enough copy of the request for one attempt's
// interceptor chain to transform without racing other attempts.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Headers != nil {
		c.Headers = maps.Clone(r.Headers)
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			c.Query[k] = append([]string(nil), v...)
		}
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}

// Response represents a completed call. The caller owns it exclusively
// once returned.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
	Stats      Stats
}

// Stats contains execution statistics for one logical call.
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
}

// BasicAuth contains basic authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor transforms the outgoing descriptor. It runs before
// the rate-limit and circuit gates on every attempt, including retries,
// and must return a descriptor (the same or a new one) or an error that
// aborts the whole call.
type RequestInterceptor func(ctx context.Context, req *Request) (*Request, error)

// ResponseInterceptor transforms the final accepted response. It runs
// only after a successful dispatch, never on intermediate failed attempts.
type ResponseInterceptor func(ctx context.Context, resp *Response) (*Response, error)

// Config holds the backend client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Breaker enables circuit breaking when non-nil.
	Breaker *resilience.BreakerConfig

	// Limiter enables rate limiting when non-nil.
	Limiter *resilience.LimiterConfig

	// FailureStatus reports whether a response status counts as a breaker
	// failure. The default treats only 5xx as failures: 4xx are caller
	// errors, not target-health signals.
	FailureStatus func(statusCode int) bool

	DefaultHeaders map[string]string
	BasicAuth      *BasicAuth

	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
}
