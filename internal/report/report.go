// Package report aggregates simulation results into JSON artifacts and a
// markdown summary. Files are a sink for the pipeline's output, not a
// store; nothing here is read back.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrsarac/ORACLE-Engine/internal/oracle"
)

// Writer persists results for one run under a single output directory.
type Writer struct {
	dir    string
	domain string
	runID  string
	logger *zap.Logger
}

// NewWriter creates the output directory and a run-scoped writer.
func NewWriter(dir, domain string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		dir:    dir,
		domain: domain,
		runID:  uuid.NewString(),
		logger: logger,
	}, nil
}

// RunID returns the identifier stamped into this run's summary.
func (w *Writer) RunID() string { return w.runID }

// SaveCategory writes one category's results as a JSON array. Invoked as
// each category completes so partial runs still leave artifacts behind.
func (w *Writer) SaveCategory(category string, results []oracle.SimulationResult) error {
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s_results.json", w.domain, category))
	if err := writeJSON(path, results); err != nil {
		return err
	}
	w.logger.Info("saved category results",
		zap.String("category", category),
		zap.Int("count", len(results)),
		zap.String("file", filepath.Base(path)))
	return nil
}

// SaveAll writes the combined result array for the whole run.
func (w *Writer) SaveAll(results []oracle.SimulationResult) error {
	path := filepath.Join(w.dir, fmt.Sprintf("%s_all_results.json", w.domain))
	return writeJSON(path, results)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// categoryStats aggregates one category for the summary document.
type categoryStats struct {
	name     string
	results  []oracle.SimulationResult
	positive int
	negative int
	neutral  int
}

func (c categoryStats) avgConfidence() float64 {
	if len(c.results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range c.results {
		sum += r.Confidence
	}
	return sum / float64(len(c.results))
}

func (c categoryStats) avgPriority() float64 {
	if len(c.results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range c.results {
		sum += r.PriorityScore
	}
	return float64(sum) / float64(len(c.results))
}

// WriteSummary renders the markdown summary across all results, grouped by
// category in first-seen order, with a top-5-by-priority list per category.
func (w *Writer) WriteSummary(results []oracle.SimulationResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# ORACLE Engine - %s Simulation Summary\n", strings.ToUpper(w.domain))
	fmt.Fprintf(&b, "\nGenerated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "\nRun ID: %s\n", w.runID)
	fmt.Fprintf(&b, "\nTotal Simulations: %d\n", len(results))
	b.WriteString("\n---\n\n## Overview\n\n")

	for _, stats := range groupByCategory(results) {
		total := len(stats.results)
		fmt.Fprintf(&b, "### %s\n", strings.ToUpper(stats.name))
		b.WriteString("| Metric | Value |\n")
		b.WriteString("|--------|-------|\n")
		fmt.Fprintf(&b, "| Total | %d |\n", total)
		fmt.Fprintf(&b, "| Positive | %d (%.0f%%) |\n", stats.positive, pct(stats.positive, total))
		fmt.Fprintf(&b, "| Negative | %d (%.0f%%) |\n", stats.negative, pct(stats.negative, total))
		fmt.Fprintf(&b, "| Neutral | %d (%.0f%%) |\n", stats.neutral, pct(stats.neutral, total))
		fmt.Fprintf(&b, "| Avg Confidence | %.2f |\n", stats.avgConfidence())
		fmt.Fprintf(&b, "| Avg Priority | %.1f/100 |\n", stats.avgPriority())
		b.WriteString("\n")

		top := topByPriority(stats.results, 5)
		if len(top) > 0 {
			b.WriteString("**Top 5 by Priority:**\n")
			for i, r := range top {
				fmt.Fprintf(&b, "%d. [%s] (P:%d) %s\n", i+1, marker(r.Outcome), r.PriorityScore, excerpt(r.Hypothesis, 80))
			}
			b.WriteString("\n")
		}
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_summary.md", w.domain))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	w.logger.Info("summary saved", zap.String("file", filepath.Base(path)))
	return nil
}

// groupByCategory preserves first-seen category order.
func groupByCategory(results []oracle.SimulationResult) []categoryStats {
	index := make(map[string]int)
	groups := make([]categoryStats, 0)
	for _, r := range results {
		i, ok := index[r.Category]
		if !ok {
			i = len(groups)
			index[r.Category] = i
			groups = append(groups, categoryStats{name: r.Category})
		}
		groups[i].results = append(groups[i].results, r)
		switch r.Outcome {
		case oracle.OutcomePositive:
			groups[i].positive++
		case oracle.OutcomeNegative:
			groups[i].negative++
		default:
			groups[i].neutral++
		}
	}
	return groups
}

// topByPriority returns the n highest-priority results, stably ordered.
func topByPriority(results []oracle.SimulationResult, n int) []oracle.SimulationResult {
	sorted := make([]oracle.SimulationResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriorityScore > sorted[j].PriorityScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func marker(outcome string) string {
	switch outcome {
	case oracle.OutcomePositive:
		return "+"
	case oracle.OutcomeNegative:
		return "-"
	default:
		return "o"
	}
}

// excerpt truncates by code point and marks the cut with an ellipsis.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
