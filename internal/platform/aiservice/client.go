package aiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/ai"
	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/config"
)

// askPath is the completion endpoint path on the ai-service.
const askPath = "/v1/ask"

// Client calls the ai-service completion endpoint over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        config.AIConfig
	logger     *slog.Logger
	rng        *rand.Rand
}

// NewClient creates a Client from the AI configuration.
// Returns ai.ErrInvalidConfig if the endpoint or API key is missing.
func NewClient(cfg config.AIConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint cannot be empty", ai.ErrInvalidConfig)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", ai.ErrInvalidConfig)
	}

	if cfg.AttemptTimeoutSeconds >= cfg.OverallTimeoutSeconds {
		return nil, fmt.Errorf("%w: attempt timeout must be below the overall budget",
			ai.ErrInvalidConfig)
	}

	return &Client{
		httpClient: &http.Client{
			// The per-attempt context carries the timeout; this is a backstop.
			Timeout: time.Duration(cfg.OverallTimeoutSeconds) * time.Second,
		},
		cfg:    cfg,
		logger: logger.With(slog.String("component", "aiservice_client")),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// askRequest is the wire format of the completion endpoint.
type askRequest struct {
	Question       string `json:"question"`
	Lang           string `json:"lang,omitempty"`
	Scene          string `json:"scene,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
	Model          string `json:"model,omitempty"`
}

// askData is the payload of a successful completion response.
type askData struct {
	Answer     string `json:"answer"`
	AIProvider string `json:"aiProvider,omitempty"`
	Model      string `json:"model,omitempty"`
}

// askResponse is the envelope the ai-service wraps every response in.
type askResponse struct {
	OK        bool     `json:"ok"`
	Data      *askData `json:"data,omitempty"`
	Message   string   `json:"message,omitempty"`
	ErrorCode string   `json:"errorCode,omitempty"`
}

// Complete sends one completion request, retrying rate-limited attempts with
// exponential backoff and jitter. The whole call, retries included, finishes
// within the configured overall budget; a retry whose delay would leave less
// than the minimum remaining budget fails fast instead.
func (c *Client) Complete(ctx context.Context, req ai.Request) (*ai.Result, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("%w: empty input", ai.ErrInvalidConfig)
	}

	overall := time.Duration(c.cfg.OverallTimeoutSeconds) * time.Second
	minBudget := time.Duration(c.cfg.MinRetryBudgetSeconds) * time.Second
	baseDelay := time.Duration(c.cfg.RetryDelaySeconds) * time.Second

	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	deadline, _ := ctx.Deadline()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		result, retryable, err := c.attempt(ctx, req)
		if err == nil {
			if attempt > 0 {
				c.logger.InfoContext(ctx, "completion succeeded after retry",
					slog.Int("attempt", attempt+1),
					slog.Duration("elapsed", time.Since(start)))
			}
			return result, nil
		}
		lastErr = err

		c.logger.WarnContext(ctx, "completion attempt failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", c.cfg.MaxRetries+1),
			slog.Duration("elapsed", time.Since(start)),
			slog.Bool("retryable", retryable),
			slog.String("error", err.Error()))

		if !retryable || attempt == c.cfg.MaxRetries {
			break
		}

		// Exponential backoff with jitter in [0.5, 1.0) of the full delay.
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + c.rng.Float64()*0.5))

		if time.Until(deadline)-delay < minBudget {
			c.logger.WarnContext(ctx, "not retrying: remaining budget below floor",
				slog.Duration("remaining", time.Until(deadline)),
				slog.Duration("delay", delay))
			return nil, fmt.Errorf("%w: retry budget exhausted after %d attempts: %v",
				ai.ErrTransientFailure, attempt+1, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ai.ErrTransientFailure, ctx.Err())
		}
	}

	return nil, lastErr
}

// attempt performs one HTTP round trip. The second return value reports
// whether the failure is transient and worth retrying.
func (c *Client) attempt(ctx context.Context, req ai.Request) (*ai.Result, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx,
		time.Duration(c.cfg.AttemptTimeoutSeconds)*time.Second)
	defer cancel()

	body, err := json.Marshal(askRequest{
		Question:       req.Input,
		Lang:           req.Locale,
		Scene:          req.Scene,
		Prompt:         req.Prompt,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Model:          c.cfg.Model,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost,
		strings.TrimRight(c.cfg.Endpoint, "/")+askPath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors and attempt timeouts are transient; an expired
		// overall budget is not worth retrying.
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%w: overall deadline exceeded: %v",
				ai.ErrTransientFailure, err)
		}
		return nil, true, fmt.Errorf("%w: %v", ai.ErrTransientFailure, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", slog.String("error", closeErr.Error()))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: failed to read response: %v", ai.ErrTransientFailure, err)
	}

	var envelope askResponse
	if len(respBody) > 0 {
		// A non-JSON body falls through with OK=false and is classified below.
		_ = json.Unmarshal(respBody, &envelope)
	}

	if resp.StatusCode != http.StatusOK || !envelope.OK {
		retryable, classifyErr := c.classify(resp.StatusCode, &envelope)
		return nil, retryable, classifyErr
	}

	if envelope.Data == nil || strings.TrimSpace(envelope.Data.Answer) == "" {
		return nil, false, ai.ErrEmptyResponse
	}

	return &ai.Result{
		Text:     envelope.Data.Answer,
		Provider: envelope.Data.AIProvider,
		Model:    envelope.Data.Model,
	}, false, nil
}

// classify maps an upstream failure to the error taxonomy and decides
// whether it is retryable.
func (c *Client) classify(status int, envelope *askResponse) (bool, error) {
	message := envelope.Message
	if message == "" {
		message = http.StatusText(status)
	}
	code := strings.ToUpper(envelope.ErrorCode)

	switch {
	case isQuotaExceeded(code, message):
		return false, fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, message)

	case status == http.StatusTooManyRequests,
		code == "RATE_LIMIT", code == "TOO_MANY_REQUESTS":
		return true, fmt.Errorf("%w: rate limited (status %d): %s",
			ai.ErrTransientFailure, status, message)

	case status >= 500:
		return true, fmt.Errorf("%w: upstream error (status %d): %s",
			ai.ErrTransientFailure, status, message)

	default:
		// Remaining 4xx are malformed requests; retrying cannot help.
		return false, fmt.Errorf("%w: upstream rejected request (status %d): %s",
			ai.ErrInvalidResponse, status, message)
	}
}

// isQuotaExceeded detects quota exhaustion, which presents as rate limiting
// but does not recover within a request's time budget.
func isQuotaExceeded(code, message string) bool {
	if code == "PROVIDER_QUOTA_EXCEEDED" {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "quota exceeded") ||
		strings.Contains(lower, "daily ask limit exceeded")
}
