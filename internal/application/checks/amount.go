package checks

import (
	"fmt"

	"github.com/shopspring/decimal"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// DefaultTolerance is the absolute difference allowed between the document total
// and the sum of its line totals.
var DefaultTolerance = decimal.RequireFromString("0.02")

// Amounts compares the sum of line totals with the document total. A difference
// up to tolerance passes. When no line carries tax information the header tax is
// taken out of the total before a second comparison. It reports whether the
// amounts reconcile; documents without a total or without lines are not checked.
func Amounts(doc *document.Document, tolerance decimal.Decimal) bool {
	if !doc.TotalAmount.Valid || len(doc.LineItems) == 0 {
		return true
	}

	sum := decimal.Zero
	for _, item := range doc.LineItems {
		sum = sum.Add(item.TotalPrice.Decimal())
	}

	total := doc.TotalAmount.Value
	if withinTolerance(sum, total, tolerance) {
		return true
	}

	if lineTaxAbsent(doc.LineItems) && doc.TaxAmount.Valid {
		if withinTolerance(sum, total.Sub(doc.TaxAmount.Value), tolerance) {
			return true
		}
	}

	doc.AddIssue(document.IssueAmountMismatch, document.FieldTotalAmount, fmt.Sprintf(
		"Total amount %s does not match sum of line items %s (difference %s)",
		total.StringFixed(2), sum.StringFixed(2), sum.Sub(total).Abs().String(),
	))
	return false
}

func withinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

func lineTaxAbsent(items []document.LineItem) bool {
	for _, item := range items {
		if item.TaxAmount.Valid || item.TaxRate.Valid {
			return false
		}
	}
	return true
}
