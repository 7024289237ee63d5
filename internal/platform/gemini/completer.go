package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/config"
)

// Completer implements ai.Completer against the Gemini API.
type Completer struct {
	logger *slog.Logger
	cfg    config.AIConfig
	client *genai.Client
	rng    *rand.Rand
}

// NewCompleter creates a Completer from the AI configuration.
//
// Returns ai.ErrInvalidConfig if the API key or model name is missing, or
// if the Gemini client cannot be initialized.
func NewCompleter(ctx context.Context, logger *slog.Logger, cfg config.AIConfig) (*Completer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ai.ErrInvalidConfig)
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ai.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			ai.ErrInvalidConfig, err)
	}

	return &Completer{
		logger: logger.With(slog.String("component", "gemini_completer")),
		cfg:    cfg,
		client: client,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Complete sends the prompt and input to Gemini, retrying transient failures
// with exponential backoff and jitter. Safety blocks and malformed responses
// return immediately; quota exhaustion maps to ai.ErrQuotaExceeded and is
// never retried.
func (c *Completer) Complete(ctx context.Context, req ai.Request) (*ai.Result, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("%w: empty input", ai.ErrInvalidConfig)
	}

	prompt := req.Input
	if req.Prompt != "" {
		prompt = req.Prompt + "\n\n" + req.Input
	}

	ctx, cancel := context.WithTimeout(ctx,
		time.Duration(c.cfg.OverallTimeoutSeconds)*time.Second)
	defer cancel()

	maxRetries := c.cfg.MaxRetries
	baseDelaySeconds := c.cfg.RetryDelaySeconds

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptNum := attempt + 1
		c.logger.InfoContext(ctx, "calling Gemini API",
			slog.Int("attempt", attemptNum),
			slog.Int("max_attempts", maxRetries+1),
			slog.String("model", c.cfg.Model))

		text, transient, err := c.generate(ctx, prompt)
		if err == nil {
			return &ai.Result{
				Text:     text,
				Provider: "gemini",
				Model:    c.cfg.Model,
			}, nil
		}
		lastErr = err

		c.logger.WarnContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attemptNum),
			slog.Bool("transient", transient),
			slog.String("error", err.Error()))

		if !transient || attempt == maxRetries {
			break
		}

		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitter := 0.5 + c.rng.Float64()*0.5
		delay := time.Duration(backoff * jitter * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ai.ErrTransientFailure, ctx.Err())
		}
	}

	return nil, lastErr
}

// generate performs a single generation attempt. The second return value
// reports whether the failure is transient.
func (c *Completer) generate(ctx context.Context, prompt string) (string, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx,
		time.Duration(c.cfg.AttemptTimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(attemptCtx, c.cfg.Model,
		genai.Text(prompt), nil)
	if err != nil {
		if classified := classifyAPIError(err); classified != nil {
			return "", false, classified
		}
		return "", true, fmt.Errorf("%w: %v", ai.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", false, fmt.Errorf("%w: no content generated", ai.ErrInvalidResponse)
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", false, fmt.Errorf("%w: content blocked by safety filters",
			ai.ErrInvalidResponse)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", false, ai.ErrEmptyResponse
	}

	return text, false, nil
}

// classifyAPIError returns a non-retryable sentinel for quota and client
// errors, or nil when the error should be treated as transient.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		// Network and timeout errors are transient.
		return nil
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests &&
		strings.Contains(strings.ToLower(apiErr.Message), "quota"):
		return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)

	case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
		return nil

	default:
		return fmt.Errorf("%w: gemini rejected request (code %d): %s",
			ai.ErrInvalidResponse, apiErr.Code, apiErr.Message)
	}
}
