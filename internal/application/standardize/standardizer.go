package standardize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/currency"

	"3tcapital/ms_extraccion_core/internal/application/bbox"
	"3tcapital/ms_extraccion_core/internal/application/prompting"
	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/llm"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// DateLayout is the canonical date format of standardized records.
const DateLayout = "2006-01-02"

// Standardizer normalizes currency codes and dates through one backend call,
// then derives remarks and fills merchant defaults.
type Standardizer struct {
	client *prompting.Client
	log    *slog.Logger
}

// New creates a Standardizer.
func New(client *prompting.Client, log *slog.Logger) *Standardizer {
	return &Standardizer{
		client: client,
		log:    log.With("component", "standardizer"),
	}
}

// Standardize returns a standardized copy of doc. Bounding boxes never reach the
// backend. Line items and every field owned by earlier stages are kept from doc,
// and header fields the backend leaves out keep their mapped value.
func (s *Standardizer) Standardize(ctx context.Context, doc document.Document, policy merchant.Policy) (document.Document, llm.Usage, error) {
	slim, stash := bbox.Strip(doc)

	prompt, err := s.client.Templates().Render(ctx, merchant.PromptStandardize, policy.PromptPaths[merchant.PromptStandardize], map[string]any{
		"DocumentType": doc.Type,
		"Document":     slim,
	})
	if err != nil {
		return doc, llm.Usage{}, err
	}

	seed := func() document.Document {
		d := slim.Clone()
		d.LineItems = nil
		return d
	}
	out, usage, err := prompting.CallOnto(ctx, s.client, prompt, seed, nil)
	if err != nil {
		return doc, usage, fmt.Errorf("standardize: %w", err)
	}

	out.LineItems = slim.LineItems
	result := bbox.Restore(out, stash)
	carryOver(&result, doc)
	result.Normalize()

	validate(&result)
	applyRemarks(&result, policy)
	applyDefaults(&result, policy)
	result.Normalize()

	s.log.Debug("Document standardized",
		"document_id", doc.ID,
		"currency", result.Currency,
		"invoice_date", result.InvoiceDate,
	)
	return result, usage, nil
}

// carryOver restores the fields the backend is not allowed to change.
func carryOver(out *document.Document, in document.Document) {
	out.ID = in.ID
	out.MerchantID = in.MerchantID
	out.DocumentUploadID = in.DocumentUploadID
	out.SourceFile = in.SourceFile
	out.Type = in.Type
	out.InvoiceNumber = in.InvoiceNumber
	out.SupplierName = in.SupplierName
	out.SupplierCode = in.SupplierCode
	out.StoreName = in.StoreName
	out.LocationCode = in.LocationCode
	out.TotalAmount = in.TotalAmount
	out.TaxAmount = in.TaxAmount
	out.Status = in.Status
	out.ExceptionStatus = in.ExceptionStatus
	out.Issues = append([]document.Issue(nil), in.Issues...)
	out.ConfidenceScore = in.ConfidenceScore
	out.InputTokens = in.InputTokens
	out.OutputTokens = in.OutputTokens
	out.CreatedAt = in.CreatedAt
}

func validate(doc *document.Document) {
	if !document.IsBlank(doc.Currency) {
		code := strings.ToUpper(strings.TrimSpace(doc.Currency))
		if unit, err := currency.ParseISO(code); err != nil {
			doc.AddIssue(document.IssueStandardization, document.FieldCurrency, fmt.Sprintf("Currency %q is not a valid ISO-4217 code", doc.Currency))
		} else {
			doc.Currency = unit.String()
		}
	}

	for _, f := range []struct {
		name  string
		label string
		value *string
	}{
		{document.FieldInvoiceDate, "Invoice date", &doc.InvoiceDate},
		{document.FieldDueDate, "Due date", &doc.DueDate},
	} {
		if document.IsBlank(*f.value) {
			continue
		}
		if _, err := time.Parse(DateLayout, *f.value); err != nil {
			doc.AddIssue(document.IssueStandardization, f.name, fmt.Sprintf("%s %q is not in YYYY-MM-DD format", f.label, *f.value))
		}
	}
}

// applyDefaults fills blank header fields with the merchant's default values.
func applyDefaults(doc *document.Document, policy merchant.Policy) {
	for name, value := range policy.Defaults {
		current, ok := doc.Field(name)
		if ok && document.IsBlank(current) {
			doc.SetField(name, value)
		}
	}
}
