package oracle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Budget is the shared concurrency budget for in-flight remote calls. One
// unit is acquired per call and released exactly once regardless of how the
// call ends. The budget also tracks a high-water mark of simultaneous
// holders, which the scheduler tests use to verify the cap is honored.
type Budget struct {
	slots chan struct{}

	mu        sync.Mutex
	inFlight  int
	highWater int

	totalAcquired atomic.Int64
	totalWaitNS   atomic.Int64
}

// NewBudget creates a budget of n units. n must be positive.
func NewBudget(n int) *Budget {
	if n < 1 {
		n = 1
	}
	return &Budget{slots: make(chan struct{}, n)}
}

// Acquire blocks until a unit is available or the context ends.
func (b *Budget) Acquire(ctx context.Context) error {
	start := time.Now()
	select {
	case b.slots <- struct{}{}:
		b.totalAcquired.Add(1)
		b.totalWaitNS.Add(int64(time.Since(start)))
		b.mu.Lock()
		b.inFlight++
		if b.inFlight > b.highWater {
			b.highWater = b.inFlight
		}
		b.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a unit to the budget.
func (b *Budget) Release() {
	select {
	case <-b.slots:
	default:
		// Release without a matching acquire is a programming error.
		panic("oracle: budget released more units than acquired")
	}
	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()
}

// InFlight returns the current number of holders.
func (b *Budget) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// HighWater returns the maximum number of simultaneous holders observed.
func (b *Budget) HighWater() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highWater
}

// Metrics summarizes budget activity.
type BudgetMetrics struct {
	Cap           int
	InFlight      int
	HighWater     int
	TotalAcquired int64
	AvgWait       time.Duration
}

// Metrics returns a snapshot of budget activity.
func (b *Budget) Metrics() BudgetMetrics {
	b.mu.Lock()
	inFlight, highWater := b.inFlight, b.highWater
	b.mu.Unlock()

	acquired := b.totalAcquired.Load()
	avgWait := time.Duration(0)
	if acquired > 0 {
		avgWait = time.Duration(b.totalWaitNS.Load() / acquired)
	}
	return BudgetMetrics{
		Cap:           cap(b.slots),
		InFlight:      inFlight,
		HighWater:     highWater,
		TotalAcquired: acquired,
		AvgWait:       avgWait,
	}
}

// String returns a human-readable summary.
func (m BudgetMetrics) String() string {
	return fmt.Sprintf("slots=%d/%d, high_water=%d, acquired=%d, avg_wait=%v",
		m.InFlight, m.Cap, m.HighWater, m.TotalAcquired, m.AvgWait)
}
