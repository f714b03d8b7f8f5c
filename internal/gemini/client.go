// Package gemini implements the REST client for the Gemini generateContent
// API. The client owns retry and backoff policy for a single logical call;
// concurrency policy belongs to the batch scheduler.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mrsarac/ORACLE-Engine/internal/usage"
)

// Sentinel payloads returned in place of model output when a call degrades.
// Callers parse these like any other reply; the verdict parser turns them
// into default-filled neutral verdicts.
const (
	SentinelRetriesExhausted = `{"error": "Failed after retries"}`
	SentinelEmptyResponse    = `{"error": "No text in response"}`
)

const (
	defaultBaseURL          = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel            = "gemini-2.0-flash"
	defaultTimeout          = 2 * time.Minute
	defaultMaxOutputTokens  = 4096
	defaultMaxAttempts      = 3
	defaultRateLimitBackoff = 5 * time.Second
	defaultTransientBackoff = 2 * time.Second
	defaultTopP             = 0.95
)

// attemptOutcome tags the result of one delivery attempt. The retry loop is
// driven by these tags rather than interleaved status checks.
type attemptOutcome int

const (
	attemptSuccess attemptOutcome = iota
	attemptRateLimited
	attemptAPIError
	attemptTransient
)

// Client issues generate calls against the Gemini API with bounded retry.
// Safe for concurrent use; the token counter is the only mutable state.
type Client struct {
	apiKey           string
	baseURL          string
	model            string
	maxOutputTokens  int
	maxAttempts      int
	rateLimitBackoff time.Duration
	transientBackoff time.Duration
	httpClient       *http.Client
	logger           *zap.Logger

	totalTokens atomic.Int64
}

// DefaultConfig returns sensible defaults for the flash model.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		BaseURL:         defaultBaseURL,
		Model:           defaultModel,
		Timeout:         defaultTimeout,
		MaxOutputTokens: defaultMaxOutputTokens,
	}
}

// NewClient creates a client with default config.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(DefaultConfig(apiKey))
}

// NewClientWithConfig creates a client with custom config.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = defaultRateLimitBackoff
	}
	if cfg.TransientBackoff <= 0 {
		cfg.TransientBackoff = defaultTransientBackoff
	}
	return &Client{
		apiKey:           cfg.APIKey,
		baseURL:          cfg.BaseURL,
		model:            cfg.Model,
		maxOutputTokens:  cfg.MaxOutputTokens,
		maxAttempts:      cfg.MaxAttempts,
		rateLimitBackoff: cfg.RateLimitBackoff,
		transientBackoff: cfg.TransientBackoff,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		logger:           zap.NewNop(),
	}
}

// SetLogger attaches a logger. Nil restores the no-op logger.
func (c *Client) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.logger = logger
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// TotalTokens returns the running token total across all successful calls.
func (c *Client) TotalTokens() int64 { return c.totalTokens.Load() }

// isReasoningModel reports whether the model takes a reasoning-effort hint.
func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.Contains(m, "gemini-3") || strings.Contains(m, "thinking")
}

// Generate sends one prompt and returns the outcome. It never returns an
// error: when every attempt is exhausted, or the context is cancelled
// mid-backoff, the outcome carries a sentinel payload with OK=false.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64) GenerationOutcome {
	start := time.Now()

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperature,
			TopP:            defaultTopP,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if isReasoningModel(c.model) {
		payload.GenerationConfig.ThinkingConfig = &geminiThinkingConfig{ThinkingLevel: "low"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		// Marshalling plain structs cannot realistically fail; degrade anyway.
		c.logger.Error("failed to marshal request", zap.Error(err))
		return GenerationOutcome{Text: SentinelRetriesExhausted, Duration: time.Since(start)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		text, outcome := c.attempt(ctx, url, body)

		switch outcome {
		case attemptSuccess:
			return GenerationOutcome{Text: text, Duration: time.Since(start), OK: true}
		case attemptRateLimited:
			wait := time.Duration(attempt+1) * c.rateLimitBackoff
			c.logger.Warn("rate limited, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait))
			if !sleepCtx(ctx, wait) {
				return GenerationOutcome{Text: SentinelRetriesExhausted, Duration: time.Since(start)}
			}
		case attemptTransient:
			if !sleepCtx(ctx, c.transientBackoff) {
				return GenerationOutcome{Text: SentinelRetriesExhausted, Duration: time.Since(start)}
			}
		case attemptAPIError:
			// Already logged; next attempt without an extra delay.
		}
	}

	c.logger.Error("all attempts exhausted",
		zap.Int("attempts", c.maxAttempts),
		zap.Duration("elapsed", time.Since(start)))
	return GenerationOutcome{Text: SentinelRetriesExhausted, Duration: time.Since(start)}
}

// attempt performs a single delivery and classifies the result.
func (c *Client) attempt(ctx context.Context, url string, body []byte) (string, attemptOutcome) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("failed to create request", zap.Error(err))
		return "", attemptTransient
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.Error(err))
		return "", attemptTransient
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("failed to read response", zap.Error(err))
		return "", attemptTransient
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", attemptRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("api error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(respBody), 200)))
		return "", attemptAPIError
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Warn("failed to parse response", zap.Error(err))
		return "", attemptAPIError
	}
	if parsed.Error != nil {
		c.logger.Warn("api error in body", zap.String("message", parsed.Error.Message))
		return "", attemptAPIError
	}

	var text string
	if len(parsed.Candidates) > 0 {
		for _, part := range parsed.Candidates[0].Content.Parts {
			if part.Text != "" {
				text = part.Text
			}
		}
	}

	if total := parsed.UsageMetadata.TotalTokenCount; total > 0 {
		c.totalTokens.Add(int64(total))
		if tracker := usage.FromContext(ctx); tracker != nil {
			tracker.Track(c.model,
				parsed.UsageMetadata.PromptTokenCount,
				parsed.UsageMetadata.CandidatesTokenCount)
		}
	}

	if text == "" {
		return SentinelEmptyResponse, attemptSuccess
	}
	return text, attemptSuccess
}

// sleepCtx waits for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
