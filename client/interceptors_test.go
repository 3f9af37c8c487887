package client

import (
	"context"
	"errors"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoisedDok/AetherArena-sub004/trace"
)

func TestTraceInterceptor(t *testing.T) {
	t.Run("stamps a fresh request id", func(t *testing.T) {
		interceptor := TraceInterceptor()
		req, err := interceptor(context.Background(), &Request{Path: "/v1/things", Headers: map[string]string{}})
		require.NoError(t, err)
		assert.NotEmpty(t, req.Headers[trace.HeaderXRequestID])
	})

	t.Run("handles nil headers", func(t *testing.T) {
		interceptor := TraceInterceptor()
		req, err := interceptor(context.Background(), &Request{Path: "/v1/things"})
		require.NoError(t, err)
		assert.NotEmpty(t, req.Headers[trace.HeaderXRequestID])
	})

	t.Run("preserves an existing header", func(t *testing.T) {
		interceptor := TraceInterceptor()
		req, err := interceptor(context.Background(), &Request{
			Path:    "/v1/things",
			Headers: map[string]string{trace.HeaderXRequestID: "fixed-id"},
		})
		require.NoError(t, err)
		assert.Equal(t, "fixed-id", req.Headers[trace.HeaderXRequestID])
	})

	t.Run("uses the context trace id", func(t *testing.T) {
		interceptor := TraceInterceptor()
		ctx := trace.WithTraceID(context.Background(), "ctx-id")
		req, err := interceptor(ctx, &Request{Path: "/v1/things", Headers: map[string]string{}})
		require.NoError(t, err)
		assert.Equal(t, "ctx-id", req.Headers[trace.HeaderXRequestID])
	})
}

func TestTraceInterceptorPerAttempt(t *testing.T) {
	var ids []string
	transport := &countingTransport{
		sequence: func(call int, req *nethttp.Request) (*nethttp.Response, error) {
			ids = append(ids, req.Header.Get(trace.HeaderXRequestID))
			if call == 1 {
				return nil, errors.New("connection reset")
			}
			return stubResponse(nethttp.StatusOK, "ok"), nil
		},
	}

	c := newTestBuilder(transport).
		WithRetries(1, time.Millisecond).
		WithRequestInterceptor(TraceInterceptor()).
		Build()

	_, err := c.Get(context.Background(), &Request{Path: "/v1/things"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEmpty(t, ids[1])
	// Without a context-pinned ID each attempt is stamped independently.
	assert.NotEqual(t, ids[0], ids[1])
}

func TestRequestWithJSONBody(t *testing.T) {
	t.Run("marshals the payload", func(t *testing.T) {
		req, err := (&Request{Path: "/v1/things"}).WithJSONBody(map[string]string{"name": "widget"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"widget"}`, string(req.Body))
	})

	t.Run("rejects unmarshalable payloads", func(t *testing.T) {
		_, err := (&Request{Path: "/v1/things"}).WithJSONBody(make(chan int))
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ValidationError))
	})
}

func TestResponseDecodeJSON(t *testing.T) {
	resp := &Response{Body: []byte(`{"id":"abc","count":3}`)}

	var out struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	require.NoError(t, resp.DecodeJSON(&out))
	assert.Equal(t, "abc", out.ID)
	assert.Equal(t, 3, out.Count)

	bad := &Response{Body: []byte("not json")}
	assert.Error(t, bad.DecodeJSON(&out))
}
