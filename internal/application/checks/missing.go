package checks

import (
	"strings"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// Required fields used when a merchant does not configure its own.
var (
	DefaultRequiredFields = []string{
		document.FieldInvoiceNumber,
		document.FieldInvoiceDate,
		document.FieldSupplierName,
		document.FieldTotalAmount,
	}
	DefaultRequiredLineItemFields = []string{
		document.FieldDescription,
		document.FieldQuantity,
		document.FieldUnitPrice,
		document.FieldTotalPrice,
	}
)

// MissingFields flags every required header and line field that is absent.
// Document and line items are checked independently.
func MissingFields(doc *document.Document, policy merchant.Policy) {
	required := policy.RequiredFields
	if len(required) == 0 {
		required = DefaultRequiredFields
	}
	if missing := missingHeader(doc, required); len(missing) > 0 {
		doc.AddIssue(document.IssueMissingField, strings.Join(missing, ","), "Missing required fields: "+strings.Join(missing, ", "))
	}

	lineRequired := policy.RequiredLineItemFields
	if len(lineRequired) == 0 {
		lineRequired = DefaultRequiredLineItemFields
	}
	for i := range doc.LineItems {
		item := &doc.LineItems[i]
		if missing := missingLine(item, lineRequired); len(missing) > 0 {
			item.AddIssue(document.IssueMissingField, strings.Join(missing, ","), "Missing required line item fields: "+strings.Join(missing, ", "))
		}
	}
}

func missingHeader(doc *document.Document, fields []string) []string {
	var missing []string
	for _, name := range fields {
		if value, ok := doc.Field(name); ok && document.IsBlank(value) {
			missing = append(missing, name)
		}
	}
	return missing
}

func missingLine(item *document.LineItem, fields []string) []string {
	var missing []string
	for _, name := range fields {
		if value, ok := item.Field(name); ok && document.IsBlank(value) {
			missing = append(missing, name)
		}
	}
	return missing
}
