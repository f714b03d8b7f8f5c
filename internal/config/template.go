package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsarac/ORACLE-Engine/internal/oracle"
)

// CategoryTemplate is the per-category evaluation addendum.
type CategoryTemplate struct {
	Prompt string `json:"prompt" yaml:"prompt"`
}

// Template is a domain configuration: the master rubric prompt, optional
// per-category prompts, and the hypothesis lists to evaluate.
type Template struct {
	Name         string                      `json:"name" yaml:"name"`
	MasterPrompt string                      `json:"master_prompt" yaml:"master_prompt"`
	Categories   map[string]CategoryTemplate `json:"categories" yaml:"categories"`
	Hypotheses   map[string][]string         `json:"hypotheses" yaml:"hypotheses"`

	// CategoryOrder fixes the processing order. Categories not listed, or
	// when the field is absent, run in sorted name order.
	CategoryOrder []string `json:"category_order,omitempty" yaml:"category_order,omitempty"`
}

// LoadTemplate reads a template from a .json, .yaml, or .yml file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var tpl Template
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
		}
	}
	return &tpl, nil
}

// LoadDomainTemplate resolves templates/<domain>.{json,yaml,yml} under dir,
// falling back to the built-in default rubric when no file exists.
func LoadDomainTemplate(dir, domain string) (*Template, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, domain+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadTemplate(path)
		}
	}
	return DefaultTemplate(domain), nil
}

// DefaultTemplate returns a template carrying only the default master
// rubric; callers must supply hypotheses before scheduling.
func DefaultTemplate(domain string) *Template {
	return &Template{
		Name:         domain,
		MasterPrompt: defaultMasterPrompt,
		Categories:   map[string]CategoryTemplate{},
		Hypotheses:   map[string][]string{},
	}
}

// CategoryPrompts flattens the per-category addenda for the runner.
func (t *Template) CategoryPrompts() map[string]string {
	out := make(map[string]string, len(t.Categories))
	for name, cat := range t.Categories {
		out[name] = cat.Prompt
	}
	return out
}

// Batches produces the ordered category batches for a run. only filters to
// a single category when non-empty; count caps hypotheses per category when
// positive.
func (t *Template) Batches(only string, count int) []oracle.CategoryBatch {
	names := t.orderedCategories()

	batches := make([]oracle.CategoryBatch, 0, len(names))
	for _, name := range names {
		if only != "" && name != only {
			continue
		}
		hyps := t.Hypotheses[name]
		if count > 0 && len(hyps) > count {
			hyps = hyps[:count]
		}
		batches = append(batches, oracle.CategoryBatch{Name: name, Hypotheses: hyps})
	}
	return batches
}

// orderedCategories returns hypothesis category names honoring
// CategoryOrder, with unlisted names appended in sorted order.
func (t *Template) orderedCategories() []string {
	seen := make(map[string]bool, len(t.Hypotheses))
	ordered := make([]string, 0, len(t.Hypotheses))
	for _, name := range t.CategoryOrder {
		if _, ok := t.Hypotheses[name]; ok && !seen[name] {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}

	rest := make([]string, 0, len(t.Hypotheses))
	for name := range t.Hypotheses {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

const defaultMasterPrompt = `You are a veteran strategy consultant with 20+ years
advising Fortune 500 companies on critical decisions.

## TASK
Analyze and evaluate the given hypothesis from a strategic perspective.

## ANALYSIS CRITERIA
1. **Desirability** - Does the target audience actually want this?
2. **Feasibility** - Is it technically and operationally possible?
3. **Viability** - Is the business model sustainable?
4. **Differentiation** - How does it stand apart from competitors?
5. **Scalability** - Can it scale?
6. **Risk** - What are the main risks?

## OUTPUT FORMAT (STRICT JSON)
Return JSON only:
{
  "outcome": "positive|negative|neutral",
  "confidence": 0.0-1.0,
  "insights": ["insight1", "insight2", "insight3"],
  "recommendations": ["rec1", "rec2"],
  "risks": ["risk1", "risk2"],
  "priority_score": 1-100,
  "summary": "One paragraph summary"
}`
