package document

import (
	"strings"
	"time"
)

// Status is the validation outcome of a document or a line item.
type Status string

const (
	StatusSuccess    Status = "Success"
	StatusExceptions Status = "Exceptions"
)

// Type identifies the kind of business document being processed.
type Type string

const (
	TypeInvoice       Type = "invoice"
	TypePurchaseOrder Type = "purchase_order"
	TypeGoodsReceipt  Type = "grn"
)

const (
	// Placeholder marks an absent text field.
	Placeholder = "-"
	// NotApplicable is the exception status of a successful record.
	NotApplicable = "N/A"
	// DefaultUOM is applied to line items without a unit of measure.
	DefaultUOM = "EA"
	// UnrecognizedFormat is the exception status of a file routed to the wrong pipeline.
	UnrecognizedFormat = "Document Format Unrecognized"
)

// BoundingBox locates a field in the source image. Coordinates are page ratios.
type BoundingBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Page   int     `json:"page"`
}

// BoundingBoxes maps a canonical field name to the regions where it was read.
type BoundingBoxes map[string][]BoundingBox

// Clone returns a deep copy.
func (b BoundingBoxes) Clone() BoundingBoxes {
	if b == nil {
		return nil
	}
	out := make(BoundingBoxes, len(b))
	for field, boxes := range b {
		out[field] = append([]BoundingBox(nil), boxes...)
	}
	return out
}

// LineItem is a single billed line of a document.
type LineItem struct {
	ItemListID      string        `json:"item_list_id,omitempty"`
	Description     string        `json:"description"`
	ItemCode        string        `json:"itemCode"`
	ItemName        string        `json:"itemName"`
	Quantity        Amount        `json:"quantity"`
	UOM             string        `json:"uom"`
	UnitPrice       Amount        `json:"unitPrice"`
	TaxRate         Amount        `json:"taxRate"`
	TaxAmount       Amount        `json:"taxAmount"`
	TotalPrice      Amount        `json:"totalPrice"`
	Status          Status        `json:"status"`
	ExceptionStatus string        `json:"exceptionStatus"`
	BoundingBoxes   BoundingBoxes `json:"boundingBoxes,omitempty"`

	Issues []Issue `json:"-"`
}

// Document is the canonical record built from one extraction result.
type Document struct {
	ID               string `json:"documentId"`
	MerchantID       string `json:"merchantId"`
	DocumentUploadID string `json:"documentUploadId"`
	SourceFile       string `json:"sourceFile"`
	Type             Type   `json:"documentType"`

	InvoiceNumber       string `json:"invoiceNumber"`
	InvoiceDate         string `json:"invoiceDate"`
	DueDate             string `json:"dueDate"`
	PurchaseOrderNumber string `json:"poNumber"`
	CustomerReference   string `json:"customerReference"`
	SupplierName        string `json:"supplierName"`
	SupplierCode        string `json:"supplierCode"`
	SupplierAddress     string `json:"supplierAddress"`
	BuyerName           string `json:"buyerName"`
	BuyerAddress        string `json:"buyerAddress"`
	StoreName           string `json:"storeName"`
	LocationCode        string `json:"locationCode"`
	ContractNumber      string `json:"contractNumber"`
	AccountNumber       string `json:"accountNumber"`
	LeaseNumber         string `json:"leaseNumber"`
	Category            string `json:"category"`
	BillingPeriod       string `json:"billingPeriod"`
	Remarks             string `json:"remarks"`
	Currency            string `json:"currency"`

	TotalAmount Amount `json:"totalAmount"`
	TaxAmount   Amount `json:"taxAmount"`

	Status          Status  `json:"status"`
	ExceptionStatus string  `json:"exceptionStatus"`
	ConfidenceScore float64 `json:"confidenceScore"`

	LineItems     []LineItem    `json:"lineItems"`
	BoundingBoxes BoundingBoxes `json:"boundingBoxes,omitempty"`

	InputTokens  int       `json:"-"`
	OutputTokens int       `json:"-"`
	CreatedAt    time.Time `json:"-"`
	Issues       []Issue   `json:"-"`
}

// IsBlank reports whether a raw field value should be treated as absent.
func IsBlank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", Placeholder, "null", "none":
		return true
	}
	return false
}

// Clone returns a deep copy of the document, including line items and boxes.
func (d Document) Clone() Document {
	out := d
	out.BoundingBoxes = d.BoundingBoxes.Clone()
	out.Issues = append([]Issue(nil), d.Issues...)
	if d.LineItems != nil {
		out.LineItems = make([]LineItem, len(d.LineItems))
		for i, item := range d.LineItems {
			out.LineItems[i] = item.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the line item.
func (l LineItem) Clone() LineItem {
	out := l
	out.BoundingBoxes = l.BoundingBoxes.Clone()
	out.Issues = append([]Issue(nil), l.Issues...)
	return out
}

// Normalize coerces every absent field to its default and keeps status and
// exception status consistent. It is the single place where defaults are applied.
func (d *Document) Normalize() {
	for _, f := range d.textFields() {
		if IsBlank(*f) {
			*f = Placeholder
		} else {
			*f = strings.TrimSpace(*f)
		}
	}
	if d.Type == "" {
		d.Type = TypeInvoice
	}
	if d.BoundingBoxes == nil {
		d.BoundingBoxes = BoundingBoxes{}
	}
	normalizeStatus(&d.Status, &d.ExceptionStatus)

	for i := range d.LineItems {
		d.LineItems[i].Normalize()
	}
}

// Normalize applies line-level defaults.
func (l *LineItem) Normalize() {
	for _, f := range []*string{&l.Description, &l.ItemCode, &l.ItemName} {
		if IsBlank(*f) {
			*f = Placeholder
		} else {
			*f = strings.TrimSpace(*f)
		}
	}
	if IsBlank(l.UOM) {
		l.UOM = DefaultUOM
	}
	normalizeStatus(&l.Status, &l.ExceptionStatus)
}

func normalizeStatus(status *Status, exception *string) {
	if *status != StatusExceptions {
		*status = StatusSuccess
	}
	if *status == StatusSuccess {
		*exception = NotApplicable
		return
	}
	if IsBlank(*exception) || *exception == NotApplicable {
		*exception = "Exceptions found"
	}
}

func (d *Document) textFields() []*string {
	return []*string{
		&d.InvoiceNumber, &d.InvoiceDate, &d.DueDate, &d.PurchaseOrderNumber,
		&d.CustomerReference, &d.SupplierName, &d.SupplierCode, &d.SupplierAddress,
		&d.BuyerName, &d.BuyerAddress, &d.StoreName, &d.LocationCode,
		&d.ContractNumber, &d.AccountNumber, &d.LeaseNumber, &d.Category,
		&d.BillingPeriod, &d.Remarks, &d.Currency,
	}
}

// MarkSuccess clears any exception on the document.
func (d *Document) MarkSuccess() {
	d.Status = StatusSuccess
	d.ExceptionStatus = NotApplicable
}

// AllLinesSuccessful reports whether every line item is in Success.
func (d *Document) AllLinesSuccessful() bool {
	for _, item := range d.LineItems {
		if item.Status != StatusSuccess {
			return false
		}
	}
	return true
}

// MarkSuccess clears any exception on the line item.
func (l *LineItem) MarkSuccess() {
	l.Status = StatusSuccess
	l.ExceptionStatus = NotApplicable
}
