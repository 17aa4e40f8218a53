package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_extraccion_core/internal/core/numbering"
)

const uniqueViolation = "23505"

// Repository implements numbering.Repository on the document_counters table.
// Writes are conditional on the version column, so concurrent generators
// never hand out the same number.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL counter repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the counter of prefix.
func (r *Repository) Get(ctx context.Context, prefix string) (numbering.Counter, error) {
	const query = `
		SELECT prefix, latest_value, updated_at, version
		FROM document_counters
		WHERE prefix = $1
	`
	var c numbering.Counter
	err := r.pool.QueryRow(ctx, query, prefix).Scan(&c.Prefix, &c.LatestValue, &c.UpdatedAt, &c.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return numbering.Counter{}, numbering.ErrNotFound
	}
	if err != nil {
		return numbering.Counter{}, fmt.Errorf("get counter %s: %w", prefix, err)
	}
	return c, nil
}

// Create inserts the first counter of a prefix at version 1.
func (r *Repository) Create(ctx context.Context, c numbering.Counter) error {
	const query = `
		INSERT INTO document_counters (prefix, latest_value, updated_at, version)
		VALUES ($1, $2, $3, 1)
	`
	_, err := r.pool.Exec(ctx, query, c.Prefix, c.LatestValue, c.UpdatedAt)
	if isUniqueViolation(err) {
		return numbering.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create counter %s: %w", c.Prefix, err)
	}
	return nil
}

// CompareAndSwap stores c only if the row is still at expectedVersion.
func (r *Repository) CompareAndSwap(ctx context.Context, c numbering.Counter, expectedVersion int64) error {
	const query = `
		UPDATE document_counters
		SET latest_value = $2, updated_at = $3, version = version + 1
		WHERE prefix = $1 AND version = $4
	`
	tag, err := r.pool.Exec(ctx, query, c.Prefix, c.LatestValue, c.UpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("update counter %s: %w", c.Prefix, err)
	}
	if tag.RowsAffected() == 0 {
		return numbering.ErrConflict
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ numbering.Repository = (*Repository)(nil)
