package masterdata

import (
	"context"
	"errors"
	"strings"
)

// Kind names a master-data table.
type Kind string

const (
	KindVendor Kind = "vendor"
	KindItem   Kind = "item"
	KindStore  Kind = "store"
)

// ErrUnknownKind is returned for tables that are not configured.
var ErrUnknownKind = errors.New("masterdata: unknown kind")

// Candidate is one reference row a free-text value can resolve to.
// Identifiers hold contract, account or lease numbers used for targeted lookups.
type Candidate struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	UOM         string   `json:"uom,omitempty"`
	Identifiers []string `json:"identifiers,omitempty"`
}

// HasIdentifier reports whether any identifier matches key, ignoring case and spacing.
func (c Candidate) HasIdentifier(key string) bool {
	key = NormalizeIdentifier(key)
	if key == "" {
		return false
	}
	for _, id := range c.Identifiers {
		if NormalizeIdentifier(id) == key {
			return true
		}
	}
	return false
}

// NormalizeIdentifier upper-cases s and removes all white space.
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// Source provides read-only access to a merchant's reference tables.
// Candidate order is stable between calls; matching decisions depend on it.
type Source interface {
	// Load returns the full table for the merchant in its canonical order.
	Load(ctx context.Context, merchantID string, kind Kind) ([]Candidate, error)

	// Lookup returns the candidates carrying any of the given identifiers.
	Lookup(ctx context.Context, merchantID string, kind Kind, identifiers []string) ([]Candidate, error)
}

// FilterByIdentifiers keeps the candidates that carry any of the identifiers,
// preserving order. Sources without indexed lookups build on it.
func FilterByIdentifiers(candidates []Candidate, identifiers []string) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		for _, id := range identifiers {
			if c.HasIdentifier(id) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Batches splits candidates into consecutive slices of at most size rows.
func Batches(candidates []Candidate, size int) [][]Candidate {
	if size <= 0 {
		size = 100
	}
	var batches [][]Candidate
	for i := 0; i < len(candidates); i += size {
		end := i + size
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, candidates[i:end])
	}
	return batches
}
