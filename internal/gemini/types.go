package gemini

import "time"

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int // Maximum tokens in response (default 4096)

	// Retry tuning. Zero values select the defaults; tests shrink these.
	MaxAttempts      int           // Attempts per Generate call (default 3)
	RateLimitBackoff time.Duration // Base wait after a 429; scaled by attempt number (default 5s)
	TransientBackoff time.Duration // Wait after a transport-level failure (default 2s)
}

// GenerationOutcome is the result of one logical Generate call. Text is
// always populated; a degraded call carries an error-sentinel JSON string
// instead of model output.
type GenerationOutcome struct {
	Text     string
	Duration time.Duration
	OK       bool
}

// geminiContent represents content in the request.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a part of the content.
type geminiPart struct {
	Text string `json:"text,omitempty"`
}

// geminiThinkingConfig carries the reasoning-effort hint for extended
// reasoning model variants.
type geminiThinkingConfig struct {
	ThinkingLevel string `json:"thinkingLevel,omitempty"`
}

// geminiGenerationConfig represents generation parameters.
type geminiGenerationConfig struct {
	Temperature     float64               `json:"temperature"`
	TopP            float64               `json:"topP,omitempty"`
	MaxOutputTokens int                   `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

// geminiRequest represents the Gemini API request.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// geminiResponse represents the API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}
