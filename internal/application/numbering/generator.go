package numbering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	core "3tcapital/ms_extraccion_core/internal/core/numbering"
)

// DefaultMaxAttempts bounds the read-compare-write cycles of one Next call.
const DefaultMaxAttempts = 10

// ErrExhausted is returned when every attempt lost the race on the counter.
var ErrExhausted = errors.New("numbering: too many concurrent updates")

const firstValue = "0001"

// Generator hands out date-scoped sequence numbers. Counters are updated with
// compare-and-swap so concurrent callers never receive the same number.
type Generator struct {
	repo        core.Repository
	loc         *time.Location
	maxAttempts int
	log         *slog.Logger
}

// NewGenerator creates a Generator. Dates are compared in loc; nil means UTC.
func NewGenerator(repo core.Repository, loc *time.Location, maxAttempts int, log *slog.Logger) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		repo:        repo,
		loc:         loc,
		maxAttempts: maxAttempts,
		log:         log.With("component", "numbering"),
	}
}

// Prefix builds the sequence prefix CODE-DDMMYYYY.
func Prefix(code string, date time.Time) string {
	return code + "-" + date.Format("02012006")
}

// NextFor returns the next number for code on the date of asOf.
func (g *Generator) NextFor(ctx context.Context, code string, asOf time.Time) (string, error) {
	return g.Next(ctx, Prefix(code, asOf.In(g.loc)), asOf)
}

// Next returns {prefix}-NNNN. The first use of a prefix yields 0001; later
// uses on the same date increment, and a use on a new date resets to 0001.
func (g *Generator) Next(ctx context.Context, prefix string, asOf time.Time) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		current, err := g.repo.Get(ctx, prefix)
		if errors.Is(err, core.ErrNotFound) {
			err = g.repo.Create(ctx, core.Counter{Prefix: prefix, LatestValue: firstValue, UpdatedAt: asOf})
			if errors.Is(err, core.ErrConflict) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("create counter %s: %w", prefix, err)
			}
			return prefix + "-" + firstValue, nil
		}
		if err != nil {
			return "", fmt.Errorf("read counter %s: %w", prefix, err)
		}

		value := firstValue
		if g.sameDay(current.UpdatedAt, asOf) {
			n, err := strconv.Atoi(current.LatestValue)
			if err != nil {
				return "", fmt.Errorf("counter %s holds invalid value %q: %w", prefix, current.LatestValue, err)
			}
			value = fmt.Sprintf("%04d", n+1)
		}

		next := core.Counter{Prefix: prefix, LatestValue: value, UpdatedAt: asOf}
		err = g.repo.CompareAndSwap(ctx, next, current.Version)
		if errors.Is(err, core.ErrConflict) {
			g.log.Debug("Counter changed concurrently, retrying", "prefix", prefix, "attempt", attempt)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("update counter %s: %w", prefix, err)
		}
		return prefix + "-" + value, nil
	}

	return "", fmt.Errorf("%w: prefix %s", ErrExhausted, prefix)
}

func (g *Generator) sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(g.loc).Date()
	by, bm, bd := b.In(g.loc).Date()
	return ay == by && am == bm && ad == bd
}
