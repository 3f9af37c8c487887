package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc-123")

	id, ok := IDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc-123", id)
}

func TestIDFromContext(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		_, ok := IDFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("empty value", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "")
		_, ok := IDFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestEnsureTraceID(t *testing.T) {
	t.Run("returns existing id", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "existing")
		assert.Equal(t, "existing", EnsureTraceID(ctx))
	})

	t.Run("generates a uuid when absent", func(t *testing.T) {
		id := EnsureTraceID(context.Background())
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("generated ids are unique", func(t *testing.T) {
		a := EnsureTraceID(context.Background())
		b := EnsureTraceID(context.Background())
		assert.NotEqual(t, a, b)
	})
}
