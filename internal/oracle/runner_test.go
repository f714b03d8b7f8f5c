package oracle

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsarac/ORACLE-Engine/internal/gemini"
)

// fakeGenerator returns scripted replies and records prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   func(prompt string) gemini.GenerationOutcome
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, temperature float64) gemini.GenerationOutcome {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.reply != nil {
		return f.reply(prompt)
	}
	return gemini.GenerationOutcome{Text: `{"outcome": "positive", "confidence": 0.9, "priority_score": 85}`, OK: true}
}

func newTestRunner(gen Generator) *Runner {
	return NewRunner(gen, RunnerConfig{
		Domain:       "business",
		MasterPrompt: "You are an evaluator.",
		CategoryPrompts: map[string]string{
			"viability": "Consider unit economics.",
		},
	})
}

func TestRunnerProducesResult(t *testing.T) {
	gen := &fakeGenerator{}
	runner := newTestRunner(gen)

	result := runner.Run(context.Background(), "viability", "raise prices by 10%", 1)

	assert.Equal(t, "ORC-BUS-VIA-0001", result.SimulationID)
	assert.Equal(t, "business", result.Domain)
	assert.Equal(t, "viability", result.Category)
	assert.Equal(t, "raise prices by 10%", result.Hypothesis)
	assert.Equal(t, "raise prices by 10%", result.Scenario)
	assert.Equal(t, OutcomePositive, result.Outcome)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, 85, result.PriorityScore)
	assert.NotEmpty(t, result.Timestamp)

	_, err := time.Parse(time.RFC3339, result.Timestamp)
	assert.NoError(t, err)
}

func TestRunnerPromptAssembly(t *testing.T) {
	gen := &fakeGenerator{}
	runner := newTestRunner(gen)

	runner.Run(context.Background(), "viability", "the hypothesis text", 1)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, "You are an evaluator."))
	assert.Contains(t, prompt, "## DOMAIN: BUSINESS")
	assert.Contains(t, prompt, "## CATEGORY: viability")
	assert.Contains(t, prompt, "Consider unit economics.")
	assert.Contains(t, prompt, "## HYPOTHESIS\nthe hypothesis text")
	assert.Contains(t, prompt, "respond strictly in JSON format")
}

func TestRunnerOmitsUnknownCategoryAddendum(t *testing.T) {
	gen := &fakeGenerator{}
	runner := newTestRunner(gen)

	runner.Run(context.Background(), "growth", "h", 1)

	require.Len(t, gen.prompts, 1)
	assert.NotContains(t, gen.prompts[0], "Consider unit economics.")
	assert.Contains(t, gen.prompts[0], "## CATEGORY: growth")
}

func TestRunnerDegradedReplyGetsDefaults(t *testing.T) {
	gen := &fakeGenerator{reply: func(string) gemini.GenerationOutcome {
		return gemini.GenerationOutcome{Text: gemini.SentinelRetriesExhausted}
	}}
	runner := newTestRunner(gen)

	result := runner.Run(context.Background(), "viability", "h", 2)

	assert.Equal(t, "ORC-BUS-VIA-0002", result.SimulationID)
	assert.Equal(t, OutcomeNeutral, result.Outcome)
	assert.Equal(t, DefaultConfidence, result.Confidence)
	assert.Equal(t, DefaultPriorityScore, result.PriorityScore)
	assert.Equal(t, gemini.SentinelRetriesExhausted, result.RawResponse)
	assert.NotNil(t, result.Insights)
}

func TestRunnerNonJSONReplyGetsDefaults(t *testing.T) {
	gen := &fakeGenerator{reply: func(string) gemini.GenerationOutcome {
		return gemini.GenerationOutcome{Text: "I cannot answer in JSON, sorry.", OK: true}
	}}
	runner := newTestRunner(gen)

	result := runner.Run(context.Background(), "viability", "h", 1)
	assert.Equal(t, OutcomeNeutral, result.Outcome)
	assert.Equal(t, "I cannot answer in JSON, sorry.", result.RawResponse)
}
