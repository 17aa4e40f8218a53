package testutil

import (
	"context"
	"sync"

	"3tcapital/ms_extraccion_core/internal/core/masterdata"
)

// MockMasterDataSource is a mock implementation of masterdata.Source for testing.
// Tables are shared by every merchant unless LoadFunc or LookupFunc is set.
type MockMasterDataSource struct {
	Tables     map[masterdata.Kind][]masterdata.Candidate
	LoadFunc   func(ctx context.Context, merchantID string, kind masterdata.Kind) ([]masterdata.Candidate, error)
	LookupFunc func(ctx context.Context, merchantID string, kind masterdata.Kind, identifiers []string) ([]masterdata.Candidate, error)

	mu          sync.Mutex
	loadCalls   []masterdata.Kind
	lookupCalls []masterdata.Kind
}

// Load calls the mock function if set, otherwise returns the configured table.
func (m *MockMasterDataSource) Load(ctx context.Context, merchantID string, kind masterdata.Kind) ([]masterdata.Candidate, error) {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, kind)
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, merchantID, kind)
	}
	return m.Tables[kind], nil
}

// Lookup calls the mock function if set, otherwise filters the configured table.
func (m *MockMasterDataSource) Lookup(ctx context.Context, merchantID string, kind masterdata.Kind, identifiers []string) ([]masterdata.Candidate, error) {
	m.mu.Lock()
	m.lookupCalls = append(m.lookupCalls, kind)
	m.mu.Unlock()

	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, merchantID, kind, identifiers)
	}
	return masterdata.FilterByIdentifiers(m.Tables[kind], identifiers), nil
}

// LoadCalls returns the kinds passed to Load, in call order.
func (m *MockMasterDataSource) LoadCalls() []masterdata.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]masterdata.Kind(nil), m.loadCalls...)
}

// LookupCalls returns the kinds passed to Lookup, in call order.
func (m *MockMasterDataSource) LookupCalls() []masterdata.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]masterdata.Kind(nil), m.lookupCalls...)
}

// Ensure MockMasterDataSource implements masterdata.Source interface.
var _ masterdata.Source = (*MockMasterDataSource)(nil)
