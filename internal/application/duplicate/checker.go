package duplicate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// Checker flags invoices that were already persisted for the same merchant.
type Checker struct {
	repo           document.Repository
	requireSuccess bool
	log            *slog.Logger
}

// NewChecker creates a Checker. When requireSuccess is set, only previously
// successful documents count as duplicates.
func NewChecker(repo document.Repository, requireSuccess bool, log *slog.Logger) *Checker {
	return &Checker{
		repo:           repo,
		requireSuccess: requireSuccess,
		log:            log.With("component", "duplicate_checker"),
	}
}

// IsDuplicate reports whether invoiceNumber exists for the merchant and document
// type. Records of excludeUploadID are ignored so a redelivered message does
// not match itself. A blank invoice number is never a duplicate.
func (c *Checker) IsDuplicate(ctx context.Context, invoiceNumber, merchantID string, docType document.Type, excludeUploadID string) (bool, error) {
	if document.IsBlank(invoiceNumber) {
		return false, nil
	}
	exists, err := c.repo.ExistsInvoice(ctx, document.DuplicateQuery{
		MerchantID:      merchantID,
		InvoiceNumber:   strings.TrimSpace(invoiceNumber),
		DocumentType:    docType,
		ExcludeUploadID: excludeUploadID,
		RequireSuccess:  c.requireSuccess,
	})
	if err != nil {
		return false, fmt.Errorf("duplicate lookup: %w", err)
	}
	return exists, nil
}

// Check runs IsDuplicate for doc and records a duplicate finding.
func (c *Checker) Check(ctx context.Context, doc *document.Document) error {
	dup, err := c.IsDuplicate(ctx, doc.InvoiceNumber, doc.MerchantID, doc.Type, doc.DocumentUploadID)
	if err != nil {
		return err
	}
	if dup {
		c.log.Info("Duplicate invoice detected",
			"document_id", doc.ID,
			"merchant_id", doc.MerchantID,
			"invoice_number", doc.InvoiceNumber,
		)
		doc.AddIssue(document.IssueDuplicate, document.FieldInvoiceNumber, fmt.Sprintf("Duplicate invoice: %s already exists", doc.InvoiceNumber))
	}
	return nil
}
