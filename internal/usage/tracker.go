// Package usage accumulates token usage across a batch run. The tracker is
// carried on the context so the API client can record usage without the
// pipeline threading an extra dependency through every layer.
package usage

import (
	"context"
	"sync"
)

type contextKey struct{}

// TokenCounts holds prompt/completion token totals.
type TokenCounts struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// Total returns prompt + completion.
func (t TokenCounts) Total() int { return t.Prompt + t.Completion }

// Add accumulates counts in place.
func (t *TokenCounts) Add(prompt, completion int) {
	t.Prompt += prompt
	t.Completion += completion
}

// Tracker records token usage per model. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	total   TokenCounts
	byModel map[string]TokenCounts
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{byModel: make(map[string]TokenCounts)}
}

// Track records one call's usage against a model.
func (t *Tracker) Track(model string, prompt, completion int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Add(prompt, completion)
	entry := t.byModel[model]
	entry.Add(prompt, completion)
	t.byModel[model] = entry
}

// Total returns the aggregate counts across all models.
func (t *Tracker) Total() TokenCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// ByModel returns a copy of the per-model counts.
func (t *Tracker) ByModel() map[string]TokenCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]TokenCounts, len(t.byModel))
	for model, counts := range t.byModel {
		out[model] = counts
	}
	return out
}

// NewContext returns a context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext retrieves the tracker, or nil when none is attached.
func FromContext(ctx context.Context) *Tracker {
	if val := ctx.Value(contextKey{}); val != nil {
		return val.(*Tracker)
	}
	return nil
}
