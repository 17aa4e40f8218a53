package matcher

import (
	"context"
	"fmt"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/masterdata"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// MatchVendor resolves the supplier of doc against the merchant's vendor table.
// A complete match sets supplierCode and supplierName from the candidate row.
// An incomplete last-batch answer is still applied and raises a mapping finding.
func (m *Matcher) MatchVendor(ctx context.Context, doc *document.Document, policy merchant.Policy) (llm.Usage, error) {
	if document.IsBlank(doc.SupplierName) {
		doc.AddIssue(document.IssueMasterMapping, document.FieldSupplierCode, MsgVendorNotFound+": supplier name is missing")
		return llm.Usage{}, nil
	}

	candidates, err := m.source.Load(ctx, doc.MerchantID, masterdata.KindVendor)
	if err != nil {
		return llm.Usage{}, fmt.Errorf("load vendors: %w", err)
	}
	if len(candidates) == 0 {
		doc.AddIssue(document.IssueMasterMapping, document.FieldSupplierCode, MsgVendorNotFound+": vendor master data is empty")
		return llm.Usage{}, nil
	}

	target := map[string]string{
		document.FieldSupplierName:    doc.SupplierName,
		document.FieldSupplierAddress: doc.SupplierAddress,
	}
	batches := masterdata.Batches(candidates, m.cfg.VendorBatchSize)

	result, usage, err := m.matchSingle(ctx, merchant.PromptVendor, policy.PromptPaths[merchant.PromptVendor], doc.Type, target, batches)
	if err != nil {
		return usage, err
	}

	m.log.Debug("Vendor match finished",
		"document_id", doc.ID,
		"batches_evaluated", result.Batches,
		"batches_total", len(batches),
		"complete", result.Complete,
	)

	if result.Candidate != nil {
		doc.SupplierCode = result.Candidate.Code
		if !document.IsBlank(result.Candidate.Name) {
			doc.SupplierName = result.Candidate.Name
		}
	}
	if !result.Complete {
		doc.AddIssue(document.IssueMasterMapping, document.FieldSupplierCode, exceptionOr(result.ExceptionStatus, MsgVendorNotFound))
	}
	return usage, nil
}

func exceptionOr(message, fallback string) string {
	if document.IsBlank(message) || message == document.NotApplicable {
		return fallback
	}
	return message
}
