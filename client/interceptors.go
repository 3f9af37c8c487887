package client

import (
	"context"
	"encoding/json"

	"github.com/PoisedDok/AetherArena-sub004/trace"
)

// TraceInterceptor returns a request interceptor that stamps an
// X-Request-ID header on every attempt. An ID already present on the
// descriptor or in the context is preserved; otherwise each attempt gets
// a fresh one, so retried attempts are distinguishable in backend logs.
func TraceInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) (*Request, error) {
		if req.Headers[trace.HeaderXRequestID] != "" {
			return req, nil
		}
		if req.Headers == nil {
			req.Headers = make(map[string]string, 1)
		}
		req.Headers[trace.HeaderXRequestID] = trace.EnsureTraceID(ctx)
		return req, nil
	}
}

// WithJSONBody marshals v into the request body and returns the request
// for chaining. Content-Type defaults to application/json at build time.
func (r *Request) WithJSONBody(v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, NewValidationError("failed to marshal JSON body", "body")
	}
	r.Body = body
	return r, nil
}

// DecodeJSON unmarshals the response body into v.
func (resp *Response) DecodeJSON(v any) error {
	return json.Unmarshal(resp.Body, v)
}
