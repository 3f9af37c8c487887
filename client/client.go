package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/PoisedDok/AetherArena-sub004/logger"
	"github.com/PoisedDok/AetherArena-sub004/resilience"
)

const (
	// DefaultTimeout is the default per-attempt dispatch timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of additional attempts beyond the first
	DefaultMaxRetries = 0

	// DefaultRetryDelay is the default base backoff delay between attempts
	DefaultRetryDelay = 1 * time.Second

	tracerName = "github.com/PoisedDok/AetherArena-sub004/client"
)

// client implements the Client interface
type client struct {
	transport Transport
	logger    logger.Logger
	config    *Config
	baseURL   *url.URL
	policy    resilience.Policy
	breakers  *resilience.BreakerGroup
	limiters  *resilience.LimiterGroup
	tracer    oteltrace.Tracer

	mu                   sync.RWMutex
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewClient creates a new backend client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the backend client
type Builder struct {
	config    *Config
	logger    logger.Logger
	transport Transport
	tracer    oteltrace.Tracer
	jitter    resilience.JitterFunc
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			MaxRetries:           DefaultMaxRetries,
			RetryDelay:           DefaultRetryDelay,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
		},
		logger: log,
	}
}

// NewBuilderFromConfig creates a builder pre-populated from a config struct
func NewBuilderFromConfig(cfg Config, log logger.Logger) *Builder {
	b := NewBuilder(log)
	if cfg.BaseURL != "" {
		b.config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		b.config.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries > 0 {
		b.config.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		b.config.RetryDelay = cfg.RetryDelay
	}
	b.config.Breaker = cfg.Breaker
	b.config.Limiter = cfg.Limiter
	b.config.FailureStatus = cfg.FailureStatus
	b.config.BasicAuth = cfg.BasicAuth
	for k, v := range cfg.DefaultHeaders {
		b.config.DefaultHeaders[k] = v
	}
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, cfg.RequestInterceptors...)
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, cfg.ResponseInterceptors...)
	return b
}

// WithBaseURL sets the base URL that relative request paths resolve against
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt dispatch timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the retry configuration
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = retryDelay
	return b
}

// WithRetryJitter injects a jitter function into the backoff computation.
// Without one, delays are deterministic for a given attempt number.
func (b *Builder) WithRetryJitter(jitter resilience.JitterFunc) *Builder {
	b.jitter = jitter
	return b
}

// WithCircuitBreaker enables circuit breaking with the given configuration
func (b *Builder) WithCircuitBreaker(cfg resilience.BreakerConfig) *Builder {
	b.config.Breaker = &cfg
	return b
}

// WithRateLimit enables per-key rate limiting with the given configuration
func (b *Builder) WithRateLimit(cfg resilience.LimiterConfig) *Builder {
	b.config.Limiter = &cfg
	return b
}

// WithFailureStatus overrides which response statuses count as circuit
// breaker failures. The default counts only 5xx.
func (b *Builder) WithFailureStatus(failure func(statusCode int) bool) *Builder {
	b.config.FailureStatus = failure
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithTransport injects the dispatch transport. Tests use stubs; the
// default is a plain *net/http.Client whose lifetime the attempt context
// bounds.
func (b *Builder) WithTransport(transport Transport) *Builder {
	b.transport = transport
	return b
}

// WithTracerProvider enables OpenTelemetry client spans around each
// logical request
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracer = tp.Tracer(tracerName)
	return b
}

// Build creates the backend client with the configured options
func (b *Builder) Build() Client {
	transport := b.transport
	if transport == nil {
		// Per-attempt contexts bound the dispatch; no nethttp.Client
		// timeout on top, or it would race our classification.
		transport = &nethttp.Client{}
	}

	var baseURL *url.URL
	if b.config.BaseURL != "" {
		baseURL, _ = url.Parse(b.config.BaseURL)
	}

	policy := resilience.NewPolicy(b.config.MaxRetries, b.config.RetryDelay)
	policy.RetryIf = IsRetryable
	policy.Jitter = b.jitter

	c := &client{
		transport:            transport,
		logger:               b.logger,
		config:               b.config,
		baseURL:              baseURL,
		policy:               policy,
		tracer:               b.tracer,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
	}

	if b.config.Breaker != nil {
		cfg := *b.config.Breaker
		if cfg.OnStateChange == nil {
			cfg.OnStateChange = c.logStateChange
		}
		c.breakers = resilience.NewBreakerGroup(cfg)
	}
	if b.config.Limiter != nil {
		c.limiters = resilience.NewLimiterGroup(*b.config.Limiter)
	}
	return c
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// AddRequestInterceptor appends a request interceptor after construction
func (c *client) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor appends a response interceptor after construction
func (c *client) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// CircuitState reports the breaker state for key. Without a configured
// breaker every key reports closed.
func (c *client) CircuitState(key string) resilience.State {
	if c.breakers == nil {
		return resilience.StateClosed
	}
	return c.breakers.Get(c.targetKey(key)).State()
}

// CircuitSnapshot reports the breaker counters for key.
func (c *client) CircuitSnapshot(key string) resilience.BreakerSnapshot {
	key = c.targetKey(key)
	if c.breakers == nil {
		return resilience.BreakerSnapshot{Key: key, State: resilience.StateClosed}
	}
	return c.breakers.Snapshot(key)
}

// ResetCircuit forces the breaker for key back to closed.
func (c *client) ResetCircuit(key string) {
	if c.breakers != nil {
		c.breakers.Reset(c.targetKey(key))
	}
}

// LimiterStats reports the token bucket state for key.
func (c *client) LimiterStats(key string) resilience.LimiterStats {
	key = c.targetKey(key)
	if c.limiters == nil {
		return resilience.LimiterStats{Key: key}
	}
	return c.limiters.Stats(key)
}

// ResetLimiter restores a full bucket for key.
func (c *client) ResetLimiter(key string) {
	if c.limiters != nil {
		c.limiters.Reset(c.targetKey(key))
	}
}

// Do performs an HTTP request with the specified method, composing the
// interceptor chain, rate-limit gate, circuit gate, bounded dispatch,
// and retry policy around it.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	resolved, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	var span oteltrace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, fmt.Sprintf("HTTP %s", method),
			oteltrace.WithSpanKind(oteltrace.SpanKindClient),
			oteltrace.WithAttributes(
				attribute.String("http.request.method", method),
				attribute.String("url.full", resolved.Path),
			))
		defer span.End()
	}

	resp, err := c.doAttempts(ctx, method, resolved)

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			var clientErr ClientError
			if errors.As(err, &clientErr) {
				span.SetAttributes(attribute.Int("http.request.attempts", clientErr.Attempts()))
			}
		} else {
			span.SetAttributes(
				attribute.Int("http.response.status_code", resp.StatusCode),
				attribute.Int("http.request.attempts", resp.Stats.Attempts),
			)
		}
	}
	return resp, err
}

// doAttempts runs the bounded attempt loop for one resolved descriptor.
func (c *client) doAttempts(ctx context.Context, method string, resolved *Request) (*Response, error) {
	start := time.Now()
	key := resolved.TargetKey
	timeout := c.config.Timeout
	if resolved.Timeout > 0 {
		timeout = resolved.Timeout
	}

	for attempt := 0; ; attempt++ {
		attempts := attempt + 1

		desc, err := c.runRequestInterceptors(ctx, resolved.Clone())
		if err != nil {
			return nil, annotate(NewInterceptorError("request interceptor failed", "request", err), attempts, time.Since(start))
		}

		if c.limiters != nil && !c.limiters.TryAcquire(key, 1) {
			return nil, annotate(NewRateLimitError(key), attempts, time.Since(start))
		}

		var breaker *resilience.Breaker
		if c.breakers != nil {
			breaker = c.breakers.Get(key)
			if gateErr := breaker.Allow(); gateErr != nil {
				return nil, annotate(NewCircuitOpenError(key, breaker.State().String()), attempts, time.Since(start))
			}
		}

		c.logRequest(method, desc, attempts)
		resp, dispatchErr := c.dispatch(ctx, method, desc, timeout)

		if breaker != nil {
			breaker.Record(c.breakerOutcome(resp, dispatchErr))
		}

		if dispatchErr == nil && IsSuccessStatus(resp.StatusCode) {
			resp, err = c.runResponseInterceptors(ctx, resp)
			if err != nil {
				return nil, annotate(NewInterceptorError("response interceptor failed", "response", err), attempts, time.Since(start))
			}
			resp.Stats = Stats{ElapsedTime: time.Since(start), Attempts: attempts}
			c.logResponse(resp)
			return resp, nil
		}

		if dispatchErr == nil {
			dispatchErr = NewAPIError(
				fmt.Sprintf("request failed with status %d", resp.StatusCode),
				resp.StatusCode,
				resp.Body,
			)
			c.logResponse(resp)
		}

		if IsErrorType(dispatchErr, CancellationError) {
			return nil, annotate(dispatchErr, attempts, time.Since(start))
		}

		if !c.policy.ShouldRetry(dispatchErr, attempt) {
			return nil, annotate(dispatchErr, attempts, time.Since(start))
		}

		delay := c.policy.DelayFor(attempt)
		c.logger.Debug().
			Str("method", method).
			Str("url", desc.Path).
			Int("attempt", attempts).
			Dur("backoff", delay).
			Err(dispatchErr).
			Msg("Backend client retrying request")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, annotate(err, attempts, time.Since(start))
		}
	}
}

// dispatch performs one attempt bounded by the per-attempt timeout. The
// derived context is the single cancellation primitive: the caller's
// signal and the attempt deadline both feed it, first one wins, and the
// transport call is abandoned through the request context either way.
func (c *client) dispatch(ctx context.Context, method string, desc *Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.buildRequest(attemptCtx, method, desc)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.transport.Do(httpReq)
	if err != nil {
		return nil, c.classifyDispatchError(ctx, err, timeout)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.classifyDispatchError(ctx, err, timeout)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// classifyDispatchError maps a raw transport error onto the typed
// taxonomy. Caller cancellation is checked first so a canceled context is
// never misreported as a network failure.
func (c *client) classifyDispatchError(ctx context.Context, err error, timeout time.Duration) error {
	if ctx.Err() != nil {
		return NewCancellationError(context.Cause(ctx))
	}
	if c.isTimeout(err) {
		return NewTimeoutError("attempt deadline exceeded", timeout)
	}
	return NewNetworkError("request execution failed", err)
}

// breakerOutcome classifies one attempt for the circuit breaker. The
// status boundary is a policy choice: by default 2xx-4xx count as target
// health, only 5xx as failures. Cancellation is discarded entirely.
func (c *client) breakerOutcome(resp *Response, err error) resilience.Outcome {
	if err == nil {
		if c.statusIsFailure(resp.StatusCode) {
			return resilience.OutcomeFailure
		}
		return resilience.OutcomeSuccess
	}
	switch {
	case IsErrorType(err, CancellationError):
		return resilience.OutcomeDiscard
	case IsErrorType(err, ValidationError):
		// Nothing was dispatched; release the slot without counting.
		return resilience.OutcomeDiscard
	default:
		return resilience.OutcomeFailure
	}
}

func (c *client) statusIsFailure(statusCode int) bool {
	if c.config.FailureStatus != nil {
		return c.config.FailureStatus(statusCode)
	}
	return statusCode >= 500
}

// sleep waits out the backoff delay, aborting with a cancellation error
// the moment the caller's signal fires.
func (c *client) sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return NewCancellationError(context.Cause(ctx))
	case <-timer.C:
		return nil
	}
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.Path == "" {
		return NewValidationError("path cannot be empty", "path")
	}
	return nil
}

// resolve produces the fully-resolved descriptor: absolute URL, merged
// query, and default headers folded under the request's own.
func (c *client) resolve(req *Request) (*Request, error) {
	resolved := req.Clone()

	u, err := url.Parse(req.Path)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid path: %v", err), "path")
	}
	if !u.IsAbs() {
		if c.baseURL == nil {
			return nil, NewValidationError("relative path requires a base URL", "path")
		}
		u = c.baseURL.ResolveReference(u)
	}

	// Fold query already present on the path into the Query values.
	if raw := u.Query(); len(raw) > 0 {
		if resolved.Query == nil {
			resolved.Query = url.Values{}
		}
		for k, vs := range raw {
			if _, exists := resolved.Query[k]; !exists {
				resolved.Query[k] = vs
			}
		}
		u.RawQuery = ""
	}
	resolved.Path = u.String()

	headers := make(map[string]string, len(c.config.DefaultHeaders)+len(req.Headers))
	for k, v := range c.config.DefaultHeaders {
		headers[k] = v
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	resolved.Headers = headers

	if resolved.TargetKey == "" {
		resolved.TargetKey = u.Host
	}
	return resolved, nil
}

// targetKey maps the public empty-key convention onto the default target.
func (c *client) targetKey(key string) string {
	if key != "" {
		return key
	}
	if c.baseURL != nil {
		return c.baseURL.Host
	}
	return ""
}

// buildRequest constructs an *http.Request from the final descriptor.
// Header application goes through nethttp.Header.Set, so keys are
// case-insensitive and last write wins.
func (c *client) buildRequest(ctx context.Context, method string, desc *Request) (*nethttp.Request, error) {
	var body io.Reader
	if desc.Body != nil {
		body = bytes.NewReader(desc.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, desc.Path, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to build request: %v", err), "path")
	}

	if len(desc.Query) > 0 {
		httpReq.URL.RawQuery = desc.Query.Encode()
	}

	for key, value := range desc.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("Content-Type") == "" && desc.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	auth := desc.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
	return httpReq, nil
}

func (c *client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors threads the descriptor through the chain in
// registration order.
func (c *client) runRequestInterceptors(ctx context.Context, desc *Request) (*Request, error) {
	c.mu.RLock()
	chain := c.requestInterceptors
	c.mu.RUnlock()

	for _, interceptor := range chain {
		next, err := interceptor(ctx, desc)
		if err != nil {
			return nil, err
		}
		if next != nil {
			desc = next
		}
	}
	return desc, nil
}

// runResponseInterceptors threads the accepted response through the chain
// in registration order.
func (c *client) runResponseInterceptors(ctx context.Context, resp *Response) (*Response, error) {
	c.mu.RLock()
	chain := c.responseInterceptors
	c.mu.RUnlock()

	for _, interceptor := range chain {
		next, err := interceptor(ctx, resp)
		if err != nil {
			return nil, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

// logRequest logs the outgoing attempt
func (c *client) logRequest(method string, desc *Request, attempt int) {
	logEvent := c.logger.Info().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", desc.Path).
		Int("attempt", attempt)

	if len(desc.Headers) > 0 {
		logEvent.Interface("headers", logger.RedactHeaders(desc.Headers))
	}

	if len(desc.Body) > 0 {
		logEvent.Bytes("body", desc.Body)
	}

	logEvent.Msg("Backend client request")
}

// logResponse logs the incoming response
func (c *client) logResponse(resp *Response) {
	logEvent := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode)

	if len(resp.Body) > 0 {
		logEvent.Bytes("body", resp.Body)
	}

	logEvent.Msg("Backend client response")
}

func (c *client) logStateChange(key string, from, to resilience.State) {
	c.logger.Warn().
		Str("key", key).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Circuit breaker state changed")
}
