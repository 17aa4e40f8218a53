package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/ms_extraccion_core/internal/core/masterdata"
)

// Source implements masterdata.Source on the master_data table. Rows keep
// the order of their position column.
type Source struct {
	pool *pgxpool.Pool
}

// NewSource creates a PostgreSQL master-data source.
func NewSource(pool *pgxpool.Pool) *Source {
	return &Source{pool: pool}
}

// Load returns the whole table of kind for merchantID.
func (s *Source) Load(ctx context.Context, merchantID string, kind masterdata.Kind) ([]masterdata.Candidate, error) {
	const query = `
		SELECT code, name, description, uom, identifiers
		FROM master_data
		WHERE merchant_id = $1 AND kind = $2
		ORDER BY position, code
	`
	rows, err := s.pool.Query(ctx, query, merchantID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("load %s master data: %w", kind, err)
	}
	return collect(rows, kind)
}

// Lookup returns the rows carrying any of identifiers. Stored and requested
// identifiers are compared upper-cased without white space.
func (s *Source) Lookup(ctx context.Context, merchantID string, kind masterdata.Kind, identifiers []string) ([]masterdata.Candidate, error) {
	keys := lookupKeys(identifiers)
	if len(keys) == 0 {
		return nil, nil
	}

	const query = `
		SELECT code, name, description, uom, identifiers
		FROM master_data
		WHERE merchant_id = $1 AND kind = $2
		  AND EXISTS (
			SELECT 1 FROM unnest(identifiers) AS i
			WHERE UPPER(regexp_replace(i, '\s', '', 'g')) = ANY($3)
		  )
		ORDER BY position, code
	`
	rows, err := s.pool.Query(ctx, query, merchantID, string(kind), keys)
	if err != nil {
		return nil, fmt.Errorf("lookup %s master data: %w", kind, err)
	}
	return collect(rows, kind)
}

// lookupKeys normalizes identifiers and drops blanks and repeats.
func lookupKeys(identifiers []string) []string {
	seen := make(map[string]bool, len(identifiers))
	keys := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		key := masterdata.NormalizeIdentifier(id)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func collect(rows pgx.Rows, kind masterdata.Kind) ([]masterdata.Candidate, error) {
	candidates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (masterdata.Candidate, error) {
		var c masterdata.Candidate
		err := row.Scan(&c.Code, &c.Name, &c.Description, &c.UOM, &c.Identifiers)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s master data: %w", kind, err)
	}
	return candidates, nil
}

var _ masterdata.Source = (*Source)(nil)
