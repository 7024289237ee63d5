package shared

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()
		ctx := SetTraceID(context.Background())
		traceID := GetTraceID(ctx)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), traceID)
	})

	t.Run("missing returns empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "", GetTraceID(context.Background()))
	})

	t.Run("unique per context", func(t *testing.T) {
		t.Parallel()
		first := GetTraceID(SetTraceID(context.Background()))
		second := GetTraceID(SetTraceID(context.Background()))
		assert.NotEqual(t, first, second)
	})
}

func TestAdminID(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()
		ctx := SetAdminID(context.Background(), "ops@example")
		adminID, ok := GetAdminID(ctx)
		assert.True(t, ok)
		assert.Equal(t, "ops@example", adminID)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, ok := GetAdminID(context.Background())
		assert.False(t, ok)
	})

	t.Run("empty string is missing", func(t *testing.T) {
		t.Parallel()
		_, ok := GetAdminID(SetAdminID(context.Background(), ""))
		assert.False(t, ok)
	})
}

func TestGenerateFallbackTraceID(t *testing.T) {
	t.Parallel()

	id := generateFallbackTraceID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), id)
}
