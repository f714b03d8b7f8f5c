package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVerdictCleanJSON(t *testing.T) {
	raw := `{
		"outcome": "positive",
		"confidence": 0.9,
		"insights": ["strong demand"],
		"recommendations": ["ship it"],
		"risks": ["pricing backlash"],
		"priority_score": 85,
		"summary": "Worth pursuing."
	}`

	v := ParseVerdict(raw)
	assert.Equal(t, OutcomePositive, v.Outcome)
	assert.Equal(t, 0.9, v.Confidence)
	assert.Equal(t, []string{"strong demand"}, v.Insights)
	assert.Equal(t, []string{"ship it"}, v.Recommendations)
	assert.Equal(t, []string{"pricing backlash"}, v.Risks)
	assert.Equal(t, 85, v.PriorityScore)
	assert.Equal(t, "Worth pursuing.", v.Summary)
}

func TestParseVerdictIgnoresSurroundingNoise(t *testing.T) {
	raw := "Here is my analysis:\n```json\n" +
		`{"outcome": "positive", "confidence": 0.9, "priority_score": 85}` +
		"\n```\nHope that helps!"

	v := ParseVerdict(raw)
	assert.Equal(t, OutcomePositive, v.Outcome)
	assert.Equal(t, 0.9, v.Confidence)
	assert.Equal(t, 85, v.PriorityScore)
}

func TestParseVerdictDefaultsOnGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"no json here at all",
		"{broken json",
		`{"outcome": "positive"`, // unterminated
	} {
		v := ParseVerdict(raw)
		assert.Equal(t, OutcomeNeutral, v.Outcome, "input: %q", raw)
		assert.Equal(t, DefaultConfidence, v.Confidence)
		assert.Equal(t, DefaultPriorityScore, v.PriorityScore)
		assert.NotNil(t, v.Insights)
		assert.Empty(t, v.Insights)
	}
}

func TestParseVerdictRejectsUnknownOutcome(t *testing.T) {
	v := ParseVerdict(`{"outcome": "maybe", "confidence": 0.8}`)
	assert.Equal(t, OutcomeNeutral, v.Outcome)
	assert.Equal(t, 0.8, v.Confidence)
}

func TestParseVerdictNumericCoercion(t *testing.T) {
	v := ParseVerdict(`{"confidence": "0.75", "priority_score": "90.9"}`)
	assert.Equal(t, 0.75, v.Confidence)
	assert.Equal(t, 90, v.PriorityScore)

	// Coercion failure falls back per field, not per verdict.
	v = ParseVerdict(`{"confidence": "high", "priority_score": 70}`)
	assert.Equal(t, DefaultConfidence, v.Confidence)
	assert.Equal(t, 70, v.PriorityScore)
}

func TestParseVerdictPreservesOutOfRangeScores(t *testing.T) {
	v := ParseVerdict(`{"confidence": 1.7, "priority_score": 140}`)
	assert.Equal(t, 1.7, v.Confidence)
	assert.Equal(t, 140, v.PriorityScore)
}

func TestParseVerdictSkipsNonStringListItems(t *testing.T) {
	v := ParseVerdict(`{"insights": ["a", 7, "b", null], "risks": "not a list"}`)
	assert.Equal(t, []string{"a", "b"}, v.Insights)
	assert.Empty(t, v.Risks)
}

func TestParseVerdictIdempotent(t *testing.T) {
	raw := `noise {"outcome": "negative", "confidence": 0.2, "priority_score": 10} trailer`
	first := ParseVerdict(raw)
	second := ParseVerdict(raw)
	assert.Equal(t, first, second)
}

func TestParseVerdictSentinelYieldsDefaults(t *testing.T) {
	v := ParseVerdict(`{"error": "Failed after retries"}`)
	assert.Equal(t, OutcomeNeutral, v.Outcome)
	assert.Equal(t, DefaultConfidence, v.Confidence)
	assert.Equal(t, DefaultPriorityScore, v.PriorityScore)
}

func TestHypothesisID(t *testing.T) {
	req := HypothesisRequest{Domain: "business", Category: "viability", Index: 1}
	assert.Equal(t, "ORC-BUS-VIA-0001", req.ID())

	req = HypothesisRequest{Domain: "ai", Category: "x", Index: 42}
	assert.Equal(t, "ORC-AI-X-0042", req.ID())
}

func TestScenarioExcerpt(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'ü'
	}
	excerpt := scenarioExcerpt(string(long))
	assert.Equal(t, 200, len([]rune(excerpt)))

	assert.Equal(t, "short", scenarioExcerpt("short"))
}
