package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCompleter_Validation(t *testing.T) {
	t.Parallel()

	cfg := config.AIConfig{
		Provider:              "gemini",
		APIKey:                "test-key",
		Model:                 "gemini-2.0-flash",
		OverallTimeoutSeconds: 60,
		AttemptTimeoutSeconds: 30,
	}

	t.Run("rejects nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewCompleter(context.Background(), nil, cfg)
		assert.Error(t, err)
	})

	t.Run("rejects empty API key", func(t *testing.T) {
		t.Parallel()
		noKey := cfg
		noKey.APIKey = ""
		_, err := NewCompleter(context.Background(), testLogger(), noKey)
		assert.ErrorIs(t, err, ai.ErrInvalidConfig)
	})

	t.Run("rejects empty model", func(t *testing.T) {
		t.Parallel()
		noModel := cfg
		noModel.Model = ""
		_, err := NewCompleter(context.Background(), testLogger(), noModel)
		assert.ErrorIs(t, err, ai.ErrInvalidConfig)
	})
}

func TestClassifyAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantIs    error
		transient bool
	}{
		{
			name:      "network error is transient",
			err:       errors.New("connection reset"),
			transient: true,
		},
		{
			name:      "rate limit is transient",
			err:       genai.APIError{Code: 429, Message: "resource exhausted"},
			transient: true,
		},
		{
			name:      "server error is transient",
			err:       genai.APIError{Code: 503, Message: "overloaded"},
			transient: true,
		},
		{
			name:   "quota exhaustion is terminal",
			err:    genai.APIError{Code: 429, Message: "quota exceeded for model"},
			wantIs: ai.ErrQuotaExceeded,
		},
		{
			name:   "bad request is terminal",
			err:    genai.APIError{Code: 400, Message: "invalid argument"},
			wantIs: ai.ErrInvalidResponse,
		},
		{
			name:   "wrapped API error is unwrapped",
			err:    fmt.Errorf("call failed: %w", genai.APIError{Code: 403, Message: "forbidden"}),
			wantIs: ai.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			classified := classifyAPIError(tt.err)
			if tt.transient {
				assert.NoError(t, classified)
				return
			}
			assert.ErrorIs(t, classified, tt.wantIs)
		})
	}
}
