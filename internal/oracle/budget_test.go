package oracle

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBudgetCapsConcurrency(t *testing.T) {
	b := NewBudget(2)
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := b.InFlight(); got != 2 {
		t.Fatalf("InFlight = %d, want 2", got)
	}

	// Third acquire must block until a release.
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := b.Acquire(blocked); err == nil {
		t.Fatal("third acquire succeeded while budget was full")
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestBudgetHighWater(t *testing.T) {
	b := NewBudget(3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Acquire(ctx); err != nil {
				t.Error(err)
				return
			}
			time.Sleep(5 * time.Millisecond)
			b.Release()
		}()
	}
	wg.Wait()

	if got := b.HighWater(); got > 3 {
		t.Fatalf("high water = %d, exceeds cap 3", got)
	}
	if got := b.InFlight(); got != 0 {
		t.Fatalf("InFlight after drain = %d, want 0", got)
	}

	m := b.Metrics()
	if m.TotalAcquired != 10 {
		t.Fatalf("TotalAcquired = %d, want 10", m.TotalAcquired)
	}
	if m.Cap != 3 {
		t.Fatalf("Cap = %d, want 3", m.Cap)
	}
}

func TestBudgetReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unmatched release")
		}
	}()
	NewBudget(1).Release()
}

func TestBudgetAcquireCancelled(t *testing.T) {
	b := NewBudget(1)
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Acquire(ctx); err != context.Canceled {
		t.Fatalf("Acquire on cancelled context = %v, want context.Canceled", err)
	}
}
