package testutil

import (
	"context"
	"sync"

	"3tcapital/ms_extraccion_core/internal/core/blob"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// MemoryBlobStore is an in-memory blob.Store.
type MemoryBlobStore struct {
	GetFunc func(ctx context.Context, key string) ([]byte, error)

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBlobStore creates a store holding objects.
func NewMemoryBlobStore(objects map[string][]byte) *MemoryBlobStore {
	if objects == nil {
		objects = map[string][]byte{}
	}
	return &MemoryBlobStore{objects: objects}
}

// Get calls the mock function if set, otherwise returns the stored object.
func (m *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

// Put stores an object.
func (m *MemoryBlobStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// MockPolicyRegistry is a mock implementation of merchant.Registry.
type MockPolicyRegistry struct {
	Policies    map[string]merchant.Policy
	ResolveFunc func(ctx context.Context, merchantID string) (merchant.Policy, error)
}

// Resolve calls the mock function if set, otherwise returns the configured policy.
func (m *MockPolicyRegistry) Resolve(ctx context.Context, merchantID string) (merchant.Policy, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, merchantID)
	}
	p, ok := m.Policies[merchantID]
	if !ok {
		return merchant.Policy{}, merchant.ErrUnknownMerchant
	}
	return p, nil
}

var (
	_ blob.Store        = (*MemoryBlobStore)(nil)
	_ merchant.Registry = (*MockPolicyRegistry)(nil)
)
