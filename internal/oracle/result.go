// Package oracle contains the simulation pipeline: verdict parsing, single
// simulation runs, and batch scheduling under a concurrency budget.
package oracle

import (
	"fmt"
	"strings"
)

// Outcome classifications for a verdict.
const (
	OutcomePositive = "positive"
	OutcomeNegative = "negative"
	OutcomeNeutral  = "neutral"
)

// Verdict defaults applied when a reply is missing or malformed.
const (
	DefaultConfidence    = 0.5
	DefaultPriorityScore = 50
)

// HypothesisRequest is one unit of input: a hypothesis within a category,
// with its 1-based sequence index. Immutable once built.
type HypothesisRequest struct {
	Domain     string
	Category   string
	Hypothesis string
	Index      int
}

// ID derives the deterministic simulation identifier, e.g.
// ORC-BUS-VIA-0001 for domain "business", category "viability", index 1.
func (h HypothesisRequest) ID() string {
	return fmt.Sprintf("ORC-%s-%s-%04d", prefix3(h.Domain), prefix3(h.Category), h.Index)
}

// prefix3 returns the uppercased first three code points of s, or all of s
// when shorter.
func prefix3(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// ParsedVerdict is the structured judgment extracted from a model reply.
// Every field has a default so a malformed reply still yields a verdict.
// Confidence and PriorityScore are passed through as received; out-of-range
// values are preserved, not clamped.
type ParsedVerdict struct {
	Outcome         string
	Confidence      float64
	Insights        []string
	Recommendations []string
	Risks           []string
	Dependencies    []string
	PriorityScore   int
	Summary         string
}

// defaultVerdict returns the all-default neutral verdict.
func defaultVerdict() ParsedVerdict {
	return ParsedVerdict{
		Outcome:         OutcomeNeutral,
		Confidence:      DefaultConfidence,
		Insights:        []string{},
		Recommendations: []string{},
		Risks:           []string{},
		Dependencies:    []string{},
		PriorityScore:   DefaultPriorityScore,
	}
}

// SimulationResult is the durable record of one hypothesis evaluation.
// Created once per hypothesis; never updated in place.
type SimulationResult struct {
	SimulationID    string         `json:"simulation_id"`
	Domain          string         `json:"domain"`
	Category        string         `json:"category"`
	Hypothesis      string         `json:"hypothesis"`
	Scenario        string         `json:"scenario"`
	Outcome         string         `json:"outcome"`
	Confidence      float64        `json:"confidence"`
	Insights        []string       `json:"insights"`
	Recommendations []string       `json:"recommendations"`
	Risks           []string       `json:"risks"`
	Dependencies    []string       `json:"dependencies"`
	PriorityScore   int            `json:"priority_score"`
	RawResponse     string         `json:"raw_response"`
	Timestamp       string         `json:"timestamp"`
	DurationMS      int64          `json:"duration_ms"`
	Metadata        map[string]any `json:"metadata"`
}

// scenarioExcerpt truncates a hypothesis to the first 200 code points.
// Truncation is by rune so multi-byte text is never corrupted.
func scenarioExcerpt(hypothesis string) string {
	r := []rune(hypothesis)
	if len(r) > 200 {
		r = r[:200]
	}
	return string(r)
}
