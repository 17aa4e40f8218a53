package standardize

import (
	"fmt"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// UtilityLookbackDays is the length of the service period assumed for utility bills.
const UtilityLookbackDays = 30

// Remarks derives the service period text of a document without a printed
// billing period. Utility bills cover the 30 days ending on the invoice date;
// any other category is billed for the next calendar month.
func Remarks(invoiceDate time.Time, utility bool) string {
	if utility {
		start := invoiceDate.AddDate(0, 0, -UtilityLookbackDays)
		return fmt.Sprintf("Service period %s to %s", start.Format(DateLayout), invoiceDate.Format(DateLayout))
	}
	next := time.Date(invoiceDate.Year(), invoiceDate.Month()+1, 1, 0, 0, 0, 0, invoiceDate.Location())
	return fmt.Sprintf("Service period %s", next.Format("January 2006"))
}

func applyRemarks(doc *document.Document, policy merchant.Policy) {
	if !document.IsBlank(doc.Remarks) {
		return
	}
	if !document.IsBlank(doc.BillingPeriod) {
		doc.Remarks = "Billing period " + doc.BillingPeriod
		return
	}
	date, err := time.Parse(DateLayout, doc.InvoiceDate)
	if err != nil {
		return
	}
	doc.Remarks = Remarks(date, policy.IsUtility(doc.Category))
}
