// Package csv reads master-data tables exported as CSV files to object storage.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"3tcapital/ms_extraccion_core/internal/core/blob"
	"3tcapital/ms_extraccion_core/internal/core/masterdata"
)

// Column names recognized in the header row, lower-cased.
var (
	codeColumns        = []string{"code", "vendor_code", "item_code", "store_code", "location_code"}
	nameColumns        = []string{"name", "vendor_name", "item_name", "store_name"}
	descriptionColumns = []string{"description", "item_description"}
	uomColumns         = []string{"uom", "unit"}
	identifierColumns  = []string{"identifiers", "contract_number", "account_number", "lease_number"}
)

// Source implements masterdata.Source over CSV objects stored at
// <prefix>/<merchant>/<kind>.csv. A missing object is an empty table.
type Source struct {
	store  blob.Store
	prefix string
}

// NewSource creates a CSV master-data source reading from store.
func NewSource(store blob.Store, prefix string) *Source {
	return &Source{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of a merchant's table.
func (s *Source) Key(merchantID string, kind masterdata.Kind) string {
	return path.Join(s.prefix, merchantID, string(kind)+".csv")
}

// Load reads the whole table in file order.
func (s *Source) Load(ctx context.Context, merchantID string, kind masterdata.Kind) ([]masterdata.Candidate, error) {
	key := s.Key(merchantID, kind)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	candidates, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return candidates, nil
}

// Lookup loads the table and keeps the rows carrying any of identifiers.
func (s *Source) Lookup(ctx context.Context, merchantID string, kind masterdata.Kind, identifiers []string) ([]masterdata.Candidate, error) {
	candidates, err := s.Load(ctx, merchantID, kind)
	if err != nil {
		return nil, err
	}
	return masterdata.FilterByIdentifiers(candidates, identifiers), nil
}

// Parse reads candidates from CSV with a header row. Rows without a code are
// skipped. Identifier cells may hold several values separated by '|' or ';'.
func Parse(r io.Reader) ([]masterdata.Candidate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := indexColumns(header)
	if _, ok := columns["code"]; !ok {
		return nil, errors.New("missing code column")
	}

	var candidates []masterdata.Candidate
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		c := masterdata.Candidate{
			Code:        cell(record, columns["code"]),
			Name:        cell(record, columns["name"]),
			Description: cell(record, columns["description"]),
			UOM:         cell(record, columns["uom"]),
		}
		if c.Code == "" {
			continue
		}
		for _, i := range columns["identifiers"] {
			c.Identifiers = append(c.Identifiers, splitIdentifiers(cell(record, []int{i}))...)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// indexColumns maps each canonical column to the header positions feeding it.
// Only identifiers accept several source columns.
func indexColumns(header []string) map[string][]int {
	groups := map[string][]string{
		"code":        codeColumns,
		"name":        nameColumns,
		"description": descriptionColumns,
		"uom":         uomColumns,
		"identifiers": identifierColumns,
	}

	columns := make(map[string][]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		for canonical, names := range groups {
			for _, name := range names {
				if h != name {
					continue
				}
				if canonical == "identifiers" || len(columns[canonical]) == 0 {
					columns[canonical] = append(columns[canonical], i)
				}
			}
		}
	}
	return columns
}

func cell(record []string, positions []int) string {
	if len(positions) == 0 || positions[0] >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[positions[0]])
}

func splitIdentifiers(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ masterdata.Source = (*Source)(nil)
