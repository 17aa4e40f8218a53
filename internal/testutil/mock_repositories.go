package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/handoff"
	"3tcapital/ms_extraccion_core/internal/core/numbering"
)

// SavedDocument is a document persisted through MockDocumentRepository.
type SavedDocument struct {
	Document document.Document
	Order    *document.PurchaseOrder
}

// MockDocumentRepository is an in-memory implementation of document.Repository.
type MockDocumentRepository struct {
	SaveFunc          func(ctx context.Context, doc document.Document, order *document.PurchaseOrder) error
	ExistsInvoiceFunc func(ctx context.Context, q document.DuplicateQuery) (bool, error)

	mu      sync.Mutex
	saved   []SavedDocument
	queries []document.DuplicateQuery
}

// Save records the document unless SaveFunc returns an error. Like the
// database upsert, a document with the upload and source file of an earlier
// save replaces it and keeps the earlier id.
func (m *MockDocumentRepository) Save(ctx context.Context, doc document.Document, order *document.PurchaseOrder) (string, error) {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, doc, order); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := doc.Clone()
	if doc.SourceFile != "" {
		for i, s := range m.saved {
			if s.Document.DocumentUploadID == doc.DocumentUploadID && s.Document.SourceFile == doc.SourceFile {
				stored.ID = s.Document.ID
				m.saved[i] = SavedDocument{Document: stored, Order: order}
				return stored.ID, nil
			}
		}
	}
	m.saved = append(m.saved, SavedDocument{Document: stored, Order: order})
	return stored.ID, nil
}

// ExistsInvoice calls the mock function if set, otherwise scans saved documents.
func (m *MockDocumentRepository) ExistsInvoice(ctx context.Context, q document.DuplicateQuery) (bool, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	saved := append([]SavedDocument(nil), m.saved...)
	m.mu.Unlock()

	if m.ExistsInvoiceFunc != nil {
		return m.ExistsInvoiceFunc(ctx, q)
	}
	for _, s := range saved {
		d := s.Document
		if d.MerchantID != q.MerchantID || d.Type != q.DocumentType || !strings.EqualFold(d.InvoiceNumber, q.InvoiceNumber) {
			continue
		}
		if q.ExcludeUploadID != "" && d.DocumentUploadID == q.ExcludeUploadID {
			continue
		}
		if q.RequireSuccess && d.Status != document.StatusSuccess {
			continue
		}
		return true, nil
	}
	return false, nil
}

// Saved returns every saved document in order.
func (m *MockDocumentRepository) Saved() []SavedDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SavedDocument(nil), m.saved...)
}

// Queries returns every duplicate query received.
func (m *MockDocumentRepository) Queries() []document.DuplicateQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]document.DuplicateQuery(nil), m.queries...)
}

// MockUploadRepository is an in-memory implementation of document.UploadRepository.
type MockUploadRepository struct {
	UpdateStatusFunc func(ctx context.Context, status document.UploadStatus) error

	mu       sync.Mutex
	statuses []document.UploadStatus
}

// UpdateStatus records the status unless UpdateStatusFunc returns an error.
func (m *MockUploadRepository) UpdateStatus(ctx context.Context, status document.UploadStatus) error {
	if m.UpdateStatusFunc != nil {
		if err := m.UpdateStatusFunc(ctx, status); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

// Statuses returns every recorded upload status.
func (m *MockUploadRepository) Statuses() []document.UploadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]document.UploadStatus(nil), m.statuses...)
}

// Last returns the most recent upload status.
func (m *MockUploadRepository) Last() (document.UploadStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return document.UploadStatus{}, false
	}
	return m.statuses[len(m.statuses)-1], true
}

// MockPublisher is a mock implementation of handoff.Publisher.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, n handoff.Notification) error

	mu        sync.Mutex
	published []handoff.Notification
}

// Publish records the notification unless PublishFunc returns an error.
func (m *MockPublisher) Publish(ctx context.Context, n handoff.Notification) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, n)
	return nil
}

// Published returns every published notification.
func (m *MockPublisher) Published() []handoff.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]handoff.Notification(nil), m.published...)
}

// MemoryCounterRepository is an in-memory numbering.Repository with
// compare-and-swap semantics.
type MemoryCounterRepository struct {
	mu       sync.Mutex
	counters map[string]numbering.Counter
}

// NewMemoryCounterRepository creates an empty counter store.
func NewMemoryCounterRepository() *MemoryCounterRepository {
	return &MemoryCounterRepository{counters: map[string]numbering.Counter{}}
}

// Get returns the counter of prefix.
func (m *MemoryCounterRepository) Get(_ context.Context, prefix string) (numbering.Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[prefix]
	if !ok {
		return numbering.Counter{}, numbering.ErrNotFound
	}
	return c, nil
}

// Create stores a new counter at version 1.
func (m *MemoryCounterRepository) Create(_ context.Context, c numbering.Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[c.Prefix]; ok {
		return numbering.ErrConflict
	}
	c.Version = 1
	m.counters[c.Prefix] = c
	return nil
}

// CompareAndSwap replaces the counter when its version is still expectedVersion.
func (m *MemoryCounterRepository) CompareAndSwap(_ context.Context, c numbering.Counter, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.counters[c.Prefix]
	if !ok || current.Version != expectedVersion {
		return numbering.ErrConflict
	}
	c.Version = expectedVersion + 1
	m.counters[c.Prefix] = c
	return nil
}

// Set seeds a counter, for tests that start from an existing sequence.
func (m *MemoryCounterRepository) Set(prefix, latest string, updatedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	version := m.counters[prefix].Version + 1
	m.counters[prefix] = numbering.Counter{Prefix: prefix, LatestValue: latest, UpdatedAt: updatedAt, Version: version}
}

var (
	_ document.Repository       = (*MockDocumentRepository)(nil)
	_ document.UploadRepository = (*MockUploadRepository)(nil)
	_ handoff.Publisher         = (*MockPublisher)(nil)
	_ numbering.Repository      = (*MemoryCounterRepository)(nil)
)
