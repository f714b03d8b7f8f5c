package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/mrsarac/ORACLE-Engine/internal/gemini"
)

// Generator issues one logical generate call. Implemented by gemini.Client;
// tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) gemini.GenerationOutcome
}

// Runner produces one SimulationResult per hypothesis. It renders the
// prompt, delegates the call to the Generator, and parses the reply. All
// resilience lives in the client: Run always returns a result, degraded or
// not.
type Runner struct {
	client          Generator
	domain          string
	masterPrompt    string
	categoryPrompts map[string]string
	temperature     float64
}

// RunnerConfig assembles a Runner.
type RunnerConfig struct {
	Domain          string
	MasterPrompt    string
	CategoryPrompts map[string]string // category → optional addendum
	Temperature     float64           // default 0.7
}

// NewRunner creates a Runner bound to a client and domain configuration.
func NewRunner(client Generator, cfg RunnerConfig) *Runner {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	return &Runner{
		client:          client,
		domain:          cfg.Domain,
		masterPrompt:    cfg.MasterPrompt,
		categoryPrompts: cfg.CategoryPrompts,
		temperature:     cfg.Temperature,
	}
}

// Run evaluates a single hypothesis and returns its result record.
func (r *Runner) Run(ctx context.Context, category, hypothesis string, index int) SimulationResult {
	req := HypothesisRequest{
		Domain:     r.domain,
		Category:   category,
		Hypothesis: hypothesis,
		Index:      index,
	}

	prompt := r.buildPrompt(category, hypothesis)

	outcome := r.client.Generate(ctx, prompt, r.temperature)
	verdict := ParseVerdict(outcome.Text)

	return SimulationResult{
		SimulationID:    req.ID(),
		Domain:          r.domain,
		Category:        category,
		Hypothesis:      hypothesis,
		Scenario:        scenarioExcerpt(hypothesis),
		Outcome:         verdict.Outcome,
		Confidence:      verdict.Confidence,
		Insights:        verdict.Insights,
		Recommendations: verdict.Recommendations,
		Risks:           verdict.Risks,
		Dependencies:    verdict.Dependencies,
		PriorityScore:   verdict.PriorityScore,
		RawResponse:     outcome.Text,
		Timestamp:       time.Now().Format(time.RFC3339),
		DurationMS:      outcome.Duration.Milliseconds(),
		Metadata:        map[string]any{"summary": verdict.Summary},
	}
}

// buildPrompt concatenates the master rubric, the domain/category header,
// the optional category addendum, and the hypothesis, closing with the
// strict-JSON instruction.
func (r *Runner) buildPrompt(category, hypothesis string) string {
	var b strings.Builder
	b.WriteString(r.masterPrompt)
	b.WriteString("\n\n## DOMAIN: ")
	b.WriteString(strings.ToUpper(r.domain))
	b.WriteString("\n## CATEGORY: ")
	b.WriteString(category)
	b.WriteString("\n\n")
	if addendum := r.categoryPrompts[category]; addendum != "" {
		b.WriteString(addendum)
		b.WriteString("\n\n")
	}
	b.WriteString("## HYPOTHESIS\n")
	b.WriteString(hypothesis)
	b.WriteString("\n\nAnalyze the hypothesis and respond strictly in JSON format.")
	return b.String()
}
