package document

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("document: not found")

// DuplicateQuery identifies a previously persisted invoice.
type DuplicateQuery struct {
	MerchantID      string
	InvoiceNumber   string
	DocumentType    Type
	ExcludeUploadID string
	RequireSuccess  bool
}

// Upload statuses reported on the per-upload status record.
const (
	UploadSuccess       = "Success"
	UploadPendingReview = "Pending Review"
	UploadFail          = "Fail"
	UploadFailed        = "Failed"
	UploadSystemError   = "System Error"
)

// UploadStatus is the aggregate outcome of one upload batch.
type UploadStatus struct {
	DocumentUploadID  string
	MerchantID        string
	Status            string
	ExceptionStatus   string
	AverageConfidence float64
	ConfidenceScores  []float64
	DocumentIDs       []string
	UpdatedAt         time.Time
}

// Repository persists canonical documents and their derived purchase orders.
type Repository interface {
	// Save writes the header, its line items, the optional purchase order and a
	// timeline entry atomically. It returns the id of the stored header, which
	// differs from doc.ID when a previous attempt already stored the same file.
	Save(ctx context.Context, doc Document, order *PurchaseOrder) (string, error)

	// ExistsInvoice reports whether an invoice matching the query was persisted before.
	ExistsInvoice(ctx context.Context, q DuplicateQuery) (bool, error)
}

// UploadRepository maintains the per-upload status record.
type UploadRepository interface {
	UpdateStatus(ctx context.Context, status UploadStatus) error
}
