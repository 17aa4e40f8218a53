package guard

import (
	"context"
	"sync"
)

// Limiter bounds the number of backend calls in flight.
type Limiter struct {
	semaphore chan struct{}
	max       int

	mu            sync.RWMutex
	active        int
	waiting       int64
	totalAcquired int64
}

// NewLimiter creates a limiter allowing max concurrent calls. max <= 0 uses 8.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		max = 8
	}
	return &Limiter{semaphore: make(chan struct{}, max), max: max}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	l.waiting++
	l.mu.Unlock()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.waiting--
		l.active++
		l.totalAcquired++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.semaphore
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
}

// LimiterStats is a snapshot of limiter counters.
type LimiterStats struct {
	Max           int
	Active        int
	Waiting       int64
	TotalAcquired int64
	Available     int
}

// Stats returns current counters.
func (l *Limiter) Stats() LimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LimiterStats{
		Max:           l.max,
		Active:        l.active,
		Waiting:       l.waiting,
		TotalAcquired: l.totalAcquired,
		Available:     l.max - l.active,
	}
}
