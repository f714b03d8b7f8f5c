package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Contract errors surfaced before any work is scheduled.
var (
	ErrNoBatches     = errors.New("no category batches supplied")
	ErrEmptyCategory = errors.New("category has no hypotheses")
)

// CategoryBatch is an ordered list of hypotheses under one category name.
// Batches are processed in the order given; hypothesis order is preserved
// in the results.
type CategoryBatch struct {
	Name       string
	Hypotheses []string
}

// ProgressEvent reports one completed hypothesis. Events are emitted on the
// configured callback; the scheduler itself never prints.
type ProgressEvent struct {
	Category     string
	SimulationID string
	Index        int // 1-based index within the category
	Completed    int // completions so far within the category
	Total        int // category size
	Outcome      string
}

// Percent returns category completion as a percentage.
func (e ProgressEvent) Percent() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Completed) / float64(e.Total) * 100
}

// Marker returns the terse outcome marker used in progress lines.
func (e ProgressEvent) Marker() string {
	switch e.Outcome {
	case OutcomePositive:
		return "+"
	case OutcomeNegative:
		return "-"
	default:
		return "o"
	}
}

// SchedulerConfig configures a batch run.
type SchedulerConfig struct {
	Concurrency    int           // max simultaneous in-flight calls (default 5)
	PacingDelay    time.Duration // minimum spacing between submissions
	OnProgress     func(ProgressEvent)
	OnCategoryDone func(category string, results []SimulationResult)
	Logger         *zap.Logger
}

// Scheduler drives hypotheses through a Runner under a shared concurrency
// budget. Submissions fire in input order; the pacing limiter throttles the
// overall request rate independent of the cap. Results are always delivered
// in submission order per category, regardless of completion order, because
// downstream aggregation depends on stable category-relative ordering.
type Scheduler struct {
	runner *Runner
	budget *Budget
	pacing *rate.Limiter
	cfg    SchedulerConfig
	logger *zap.Logger
}

// NewScheduler creates a scheduler around a runner.
func NewScheduler(runner *Runner, cfg SchedulerConfig) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 5
	}
	limit := rate.Inf
	if cfg.PacingDelay > 0 {
		limit = rate.Every(cfg.PacingDelay)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner: runner,
		budget: NewBudget(cfg.Concurrency),
		pacing: rate.NewLimiter(limit, 1),
		cfg:    cfg,
		logger: logger,
	}
}

// Budget exposes the underlying concurrency budget, mainly for tests and
// metrics reporting.
func (s *Scheduler) Budget() *Budget { return s.budget }

// TotalTokens returns the running token total when the underlying client
// tracks one, else zero.
func (s *Scheduler) TotalTokens() int64 {
	if counter, ok := s.runner.client.(interface{ TotalTokens() int64 }); ok {
		return counter.TotalTokens()
	}
	return 0
}

// RunAll evaluates every hypothesis in every batch. Contract violations
// (no batches, an empty category) are reported before any call is made.
// On cancellation the results recorded so far are returned together with
// the context error; every hypothesis that started produced a record.
func (s *Scheduler) RunAll(ctx context.Context, batches []CategoryBatch) ([]SimulationResult, error) {
	if len(batches) == 0 {
		return nil, ErrNoBatches
	}
	for _, batch := range batches {
		if len(batch.Hypotheses) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyCategory, batch.Name)
		}
	}

	all := make([]SimulationResult, 0)
	for _, batch := range batches {
		s.logger.Info("category starting",
			zap.String("category", batch.Name),
			zap.Int("hypotheses", len(batch.Hypotheses)))

		results, err := s.runCategory(ctx, batch)
		all = append(all, results...)
		if err != nil {
			return all, err
		}

		if s.cfg.OnCategoryDone != nil {
			s.cfg.OnCategoryDone(batch.Name, results)
		}
		s.logger.Info("category complete",
			zap.String("category", batch.Name),
			zap.String("budget", s.budget.Metrics().String()))
	}
	return all, nil
}

// runCategory fans one category out through the budget. Each slot is
// acquired in the submit loop so the fire sequence matches input order;
// completions land in an indexed slice to restore submission order.
func (s *Scheduler) runCategory(ctx context.Context, batch CategoryBatch) ([]SimulationResult, error) {
	total := len(batch.Hypotheses)
	results := make([]SimulationResult, total)
	recorded := make([]bool, total)

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)

	for i, hypothesis := range batch.Hypotheses {
		if err := s.pacing.Wait(gctx); err != nil {
			break
		}
		if err := s.budget.Acquire(gctx); err != nil {
			break
		}

		index := i + 1
		hyp := hypothesis
		g.Go(func() error {
			defer s.budget.Release()

			result := s.runner.Run(gctx, batch.Name, hyp, index)

			// The callback fires under the lock so observers see
			// monotonically increasing Completed counts.
			mu.Lock()
			results[index-1] = result
			recorded[index-1] = true
			completed++
			if s.cfg.OnProgress != nil {
				s.cfg.OnProgress(ProgressEvent{
					Category:     batch.Name,
					SimulationID: result.SimulationID,
					Index:        index,
					Completed:    completed,
					Total:        total,
					Outcome:      result.Outcome,
				})
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Keep whatever was recorded, in submission order.
		partial := make([]SimulationResult, 0, total)
		for i, ok := range recorded {
			if ok {
				partial = append(partial, results[i])
			}
		}
		return partial, err
	}
	return results, nil
}
