// Package guard protects a generative backend with a concurrency limit and
// a circuit breaker.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/llm"
)

// Config sizes the guard.
type Config struct {
	MaxConcurrent    int
	FailureThreshold int
	Cooldown         time.Duration
}

// Backend decorates an llm.Backend.
type Backend struct {
	inner   llm.Backend
	limiter *Limiter
	breaker *CircuitBreaker
	log     *slog.Logger
}

// New wraps inner.
func New(inner llm.Backend, cfg Config, log *slog.Logger) *Backend {
	return &Backend{
		inner:   inner,
		limiter: NewLimiter(cfg.MaxConcurrent),
		breaker: NewCircuitBreaker(cfg.FailureThreshold, cfg.Cooldown),
		log:     log.With("component", "llm_guard"),
	}
}

// Prompt waits for a free slot and forwards the call unless the breaker is
// open. Cancellations and unusable answers do not count as backend failures.
func (b *Backend) Prompt(ctx context.Context, prompt string) (llm.Response, error) {
	if err := b.limiter.Acquire(ctx); err != nil {
		return llm.Response{}, err
	}
	defer b.limiter.Release()

	if err := b.breaker.Allow(); err != nil {
		return llm.Response{}, err
	}

	resp, err := b.inner.Prompt(ctx, prompt)
	if errors.Is(err, context.Canceled) {
		b.breaker.Abort()
		return resp, err
	}

	failed := err != nil &&
		!errors.Is(err, llm.ErrMalformedResponse) &&
		!errors.Is(err, llm.ErrEmptyResponse)
	before := b.breaker.State()
	b.breaker.Record(failed)

	if after := b.breaker.State(); after != before {
		b.log.Warn("Circuit breaker state changed",
			"from", before.String(),
			"to", after.String(),
			"error", err,
		)
	}
	return resp, err
}

// Stats reports the limiter and breaker counters.
func (b *Backend) Stats() (LimiterStats, CircuitBreakerStats) {
	return b.limiter.Stats(), b.breaker.Stats()
}

var _ llm.Backend = (*Backend)(nil)
