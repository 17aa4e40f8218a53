package numbering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	core "3tcapital/ms_extraccion_core/internal/core/numbering"
	"3tcapital/ms_extraccion_core/internal/testutil"
)

func TestPrefix(t *testing.T) {
	date := time.Date(2025, time.December, 5, 23, 0, 0, 0, time.UTC)
	if got := Prefix("ROBO", date); got != "ROBO-05122025" {
		t.Errorf("expected ROBO-05122025, got %s", got)
	}
}

func TestNext_IncrementsWithinDate(t *testing.T) {
	g := NewGenerator(testutil.NewMemoryCounterRepository(), time.UTC, 0, testutil.NewNullLogger())
	day := time.Date(2025, time.December, 5, 9, 0, 0, 0, time.UTC)

	for i, want := range []string{"ROBO-05122025-0001", "ROBO-05122025-0002", "ROBO-05122025-0003"} {
		got, err := g.Next(context.Background(), "ROBO-05122025", day.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("call %d: expected %s, got %s", i+1, want, got)
		}
	}
}

func TestNext_ResetsOnNewDate(t *testing.T) {
	repo := testutil.NewMemoryCounterRepository()
	repo.Set("ROBO", "0042", time.Date(2025, time.December, 4, 18, 0, 0, 0, time.UTC))
	g := NewGenerator(repo, time.UTC, 0, testutil.NewNullLogger())

	got, err := g.Next(context.Background(), "ROBO", time.Date(2025, time.December, 5, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ROBO-0001" {
		t.Errorf("expected reset to 0001, got %s", got)
	}
}

func TestNext_ComparesDatesInConfiguredZone(t *testing.T) {
	kl := time.FixedZone("MYT", 8*60*60)
	repo := testutil.NewMemoryCounterRepository()
	// 17:00 UTC on the 4th is already the 5th in Kuala Lumpur.
	repo.Set("ROBO", "0003", time.Date(2025, time.December, 4, 17, 0, 0, 0, time.UTC))
	g := NewGenerator(repo, kl, 0, testutil.NewNullLogger())

	got, err := g.Next(context.Background(), "ROBO", time.Date(2025, time.December, 5, 1, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ROBO-0004" {
		t.Errorf("expected ROBO-0004, got %s", got)
	}
}

func TestNextFor_UsesLocalDate(t *testing.T) {
	kl := time.FixedZone("MYT", 8*60*60)
	g := NewGenerator(testutil.NewMemoryCounterRepository(), kl, 0, testutil.NewNullLogger())

	got, err := g.NextFor(context.Background(), "ROBO", time.Date(2025, time.December, 4, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ROBO-05122025-0001" {
		t.Errorf("expected ROBO-05122025-0001, got %s", got)
	}
}

func TestNext_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	const callers = 20
	g := NewGenerator(testutil.NewMemoryCounterRepository(), time.UTC, 1000, testutil.NewNullLogger())
	asOf := time.Date(2025, time.December, 5, 9, 0, 0, 0, time.UTC)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := g.Next(context.Background(), "ROBO", asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			seen[n] = true
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	for i := 1; i <= callers; i++ {
		want := fmt.Sprintf("ROBO-%04d", i)
		if !seen[want] {
			t.Errorf("expected %s to be issued exactly once", want)
		}
	}
}

type conflictingRepo struct {
	*testutil.MemoryCounterRepository
}

func (conflictingRepo) CompareAndSwap(context.Context, core.Counter, int64) error {
	return core.ErrConflict
}

func TestNext_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := conflictingRepo{testutil.NewMemoryCounterRepository()}
	repo.Set("ROBO", "0001", time.Now())
	g := NewGenerator(repo, time.UTC, 3, testutil.NewNullLogger())

	_, err := g.Next(context.Background(), "ROBO", time.Now())
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}
