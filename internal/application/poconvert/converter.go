package poconvert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// MsgMissingLocation is written on invoices that cannot be converted for lack of a location code.
const MsgMissingLocation = "Purchase order not created: missing location code"

// Numberer issues purchase order numbers.
type Numberer interface {
	NextFor(ctx context.Context, code string, asOf time.Time) (string, error)
}

// Converter re-projects validated invoice lines into a purchase order.
type Converter struct {
	numbers Numberer
	now     func() time.Time
	log     *slog.Logger
}

// NewConverter creates a Converter.
func NewConverter(numbers Numberer, log *slog.Logger) *Converter {
	return &Converter{
		numbers: numbers,
		now:     time.Now,
		log:     log.With("component", "po_converter"),
	}
}

// Convert builds a purchase order from the successful lines of doc. It returns
// nil when the merchant does not convert invoices or no line succeeded. A
// missing location code also returns nil and escalates the successful lines
// and the document, since the invoice cannot succeed without its order.
func (c *Converter) Convert(ctx context.Context, doc *document.Document, policy merchant.Policy) (*document.PurchaseOrder, error) {
	if !policy.InvoiceToPO {
		return nil, nil
	}

	var lines []document.LineItem
	for _, item := range doc.LineItems {
		if item.Status == document.StatusSuccess {
			lines = append(lines, item)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	if document.IsBlank(doc.LocationCode) {
		escalate(doc)
		c.log.Info("Skipped purchase order without location code", "document_id", doc.ID)
		return nil, nil
	}

	asOf := c.now()
	number, err := c.numbers.NextFor(ctx, policy.NumberingCode(), asOf)
	if err != nil {
		return nil, fmt.Errorf("purchase order number: %w", err)
	}

	total := decimal.Zero
	orderLines := make([]document.OrderLineItem, len(lines))
	for i, item := range lines {
		orderLines[i] = document.OrderLineItem{
			LineNumber:  i + 1,
			Description: item.Description,
			ItemCode:    item.ItemCode,
			ItemName:    item.ItemName,
			Quantity:    item.Quantity,
			UOM:         item.UOM,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			TaxAmount:   item.TaxAmount,
			TotalPrice:  item.TotalPrice,
		}
		total = total.Add(item.TotalPrice.Decimal())
	}

	order := &document.PurchaseOrder{
		ID:               uuid.NewString(),
		Number:           number,
		SourceDocumentID: doc.ID,
		MerchantID:       doc.MerchantID,
		DocumentUploadID: doc.DocumentUploadID,
		SupplierName:     doc.SupplierName,
		SupplierCode:     doc.SupplierCode,
		LocationCode:     doc.LocationCode,
		Currency:         doc.Currency,
		OrderDate:        asOf.Format("2006-01-02"),
		TotalAmount:      document.NewAmount(total),
		Status:           document.StatusSuccess,
		ExceptionStatus:  document.NotApplicable,
		LineItems:        orderLines,
		CreatedAt:        asOf,
	}

	if document.IsBlank(doc.PurchaseOrderNumber) {
		doc.PurchaseOrderNumber = number
	}

	c.log.Info("Purchase order created",
		"document_id", doc.ID,
		"po_number", number,
		"lines", len(orderLines),
		"total", total.String(),
	)
	return order, nil
}

// escalate moves every successful line and the document to Exceptions. The
// message is appended to an exception status already set by synthesis.
func escalate(doc *document.Document) {
	for i := range doc.LineItems {
		if doc.LineItems[i].Status == document.StatusSuccess {
			doc.LineItems[i].AddIssue(document.IssueLocationCode, document.FieldLocationCode, MsgMissingLocation)
		}
	}

	previous := doc.ExceptionStatus
	wasSuccess := doc.Status == document.StatusSuccess
	doc.AddIssue(document.IssueLocationCode, document.FieldLocationCode, MsgMissingLocation)
	if !wasSuccess && !document.IsBlank(previous) {
		doc.ExceptionStatus = previous + "; " + MsgMissingLocation
	}
}
