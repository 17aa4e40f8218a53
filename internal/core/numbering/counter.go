package numbering

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no counter exists for a prefix.
	ErrNotFound = errors.New("numbering: counter not found")
	// ErrConflict is returned when a concurrent writer changed the counter first.
	ErrConflict = errors.New("numbering: concurrent update")
)

// Counter is the sequence state of one prefix.
type Counter struct {
	Prefix      string
	LatestValue string
	UpdatedAt   time.Time
	Version     int64
}

// Repository stores counters with conditional writes.
type Repository interface {
	Get(ctx context.Context, prefix string) (Counter, error)

	// Create inserts the first counter of a prefix, failing with ErrConflict if it already exists.
	Create(ctx context.Context, c Counter) error

	// CompareAndSwap replaces the counter only if its stored version still equals
	// expectedVersion, failing with ErrConflict otherwise. On success the stored
	// version is expectedVersion+1.
	CompareAndSwap(ctx context.Context, c Counter, expectedVersion int64) error
}
