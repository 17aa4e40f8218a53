package document

import "time"

// PurchaseOrder is derived from a validated invoice when the merchant converts
// invoices into purchase orders. It owns its generated number and only carries
// the invoice lines that passed validation.
type PurchaseOrder struct {
	ID               string          `json:"purchaseOrderId"`
	Number           string          `json:"poNumber"`
	SourceDocumentID string          `json:"sourceDocumentId"`
	MerchantID       string          `json:"merchantId"`
	DocumentUploadID string          `json:"documentUploadId"`
	SupplierName     string          `json:"supplierName"`
	SupplierCode     string          `json:"supplierCode"`
	LocationCode     string          `json:"locationCode"`
	Currency         string          `json:"currency"`
	OrderDate        string          `json:"orderDate"`
	TotalAmount      Amount          `json:"totalAmount"`
	Status           Status          `json:"status"`
	ExceptionStatus  string          `json:"exceptionStatus"`
	LineItems        []OrderLineItem `json:"lineItems"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// OrderLineItem is a purchase order line copied from an invoice line.
type OrderLineItem struct {
	LineNumber  int    `json:"lineNumber"`
	Description string `json:"description"`
	ItemCode    string `json:"itemCode"`
	ItemName    string `json:"itemName"`
	Quantity    Amount `json:"quantity"`
	UOM         string `json:"uom"`
	UnitPrice   Amount `json:"unitPrice"`
	TaxRate     Amount `json:"taxRate"`
	TaxAmount   Amount `json:"taxAmount"`
	TotalPrice  Amount `json:"totalPrice"`
}
