package fieldmap

import (
	"strings"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// AliasTable maps each canonical field to the payload keys it may appear under,
// in priority order. The first alias present in the payload wins.
type AliasTable struct {
	Type   document.Type
	Header map[string][]string
	Line   map[string][]string
}

var commonHeader = map[string][]string{
	document.FieldSupplierName:      {"VendorName", "SupplierName", "vendor_name", "supplier_name", "Vendor", "Supplier", "SellerName"},
	document.FieldSupplierAddress:   {"VendorAddress", "SupplierAddress", "vendor_address", "supplier_address"},
	document.FieldBuyerName:         {"CustomerName", "BuyerName", "BillToName", "customer_name", "buyer_name"},
	document.FieldBuyerAddress:      {"CustomerAddress", "BuyerAddress", "BillToAddress", "customer_address"},
	document.FieldStoreName:         {"ShipToName", "StoreName", "DeliveryLocation", "ship_to_name", "Outlet"},
	document.FieldCustomerReference: {"CustomerReference", "CustomerRef", "customer_reference", "ReferenceNumber"},
	document.FieldCurrency:          {"Currency", "CurrencyCode", "currency"},
	document.FieldTotalAmount:       {"InvoiceTotal", "TotalAmount", "Total", "AmountDue", "total_amount", "GrandTotal"},
	document.FieldTaxAmount:         {"TotalTax", "TaxAmount", "Tax", "tax_amount", "GST", "VAT"},
	document.FieldContractNumber:    {"ContractNumber", "ContractNo", "contract_number"},
	document.FieldAccountNumber:     {"AccountNumber", "AccountNo", "account_number", "CustomerAccountNumber"},
	document.FieldLeaseNumber:       {"LeaseNumber", "LeaseNo", "lease_number", "TenancyNumber"},
	document.FieldCategory:          {"Category", "InvoiceCategory", "ServiceType", "category"},
	document.FieldBillingPeriod:     {"BillingPeriod", "ServicePeriod", "billing_period", "StatementPeriod"},
}

var commonLine = map[string][]string{
	document.FieldDescription: {"Description", "ItemDescription", "description", "Item", "Particulars"},
	document.FieldItemCode:    {"ProductCode", "ItemCode", "SKU", "item_code", "product_code"},
	document.FieldQuantity:    {"Quantity", "Qty", "quantity", "qty"},
	document.FieldUOM:         {"Unit", "UOM", "UnitOfMeasure", "uom", "unit"},
	document.FieldUnitPrice:   {"UnitPrice", "Price", "Rate", "unit_price"},
	document.FieldTaxRate:     {"TaxRate", "TaxPercent", "tax_rate", "GSTRate"},
	document.FieldLineTax:     {"Tax", "TaxAmount", "tax_amount", "GSTAmount"},
	document.FieldTotalPrice:  {"Amount", "TotalPrice", "LineTotal", "total_price", "ExtendedAmount"},
}

// InvoiceAliases is the table for supplier invoices.
var InvoiceAliases = build(document.TypeInvoice, map[string][]string{
	document.FieldInvoiceNumber: {"InvoiceId", "InvoiceNumber", "InvoiceNo", "invoice_number", "BillNumber"},
	document.FieldInvoiceDate:   {"InvoiceDate", "invoice_date", "BillDate", "Date"},
	document.FieldDueDate:       {"DueDate", "PaymentDueDate", "due_date"},
	document.FieldPONumber:      {"PurchaseOrder", "PONumber", "PurchaseOrderNumber", "po_number"},
})

// PurchaseOrderAliases is the table for purchase orders. The order number fills
// the invoice number slot so duplicate detection works uniformly.
var PurchaseOrderAliases = build(document.TypePurchaseOrder, map[string][]string{
	document.FieldInvoiceNumber: {"PurchaseOrderNumber", "PONumber", "OrderNumber", "po_number"},
	document.FieldInvoiceDate:   {"OrderDate", "PODate", "order_date", "Date"},
	document.FieldDueDate:       {"DeliveryDate", "ExpectedDeliveryDate", "delivery_date"},
	document.FieldPONumber:      {"PurchaseOrderNumber", "PONumber", "OrderNumber"},
})

// GoodsReceiptAliases is the table for goods received notes.
var GoodsReceiptAliases = build(document.TypeGoodsReceipt, map[string][]string{
	document.FieldInvoiceNumber: {"GRNNumber", "GoodsReceiptNumber", "ReceiptNumber", "DeliveryOrderNumber", "grn_number"},
	document.FieldInvoiceDate:   {"ReceivedDate", "GRNDate", "ReceiptDate", "Date"},
	document.FieldPONumber:      {"PurchaseOrder", "PONumber", "PurchaseOrderNumber"},
})

func build(t document.Type, specific map[string][]string) AliasTable {
	table := AliasTable{
		Type:   t,
		Header: make(map[string][]string, len(commonHeader)+len(specific)),
		Line:   make(map[string][]string, len(commonLine)),
	}
	for field, aliases := range commonHeader {
		table.Header[field] = aliases
	}
	for field, aliases := range specific {
		table.Header[field] = aliases
	}
	for field, aliases := range commonLine {
		table.Line[field] = aliases
	}
	return table
}

// ForType returns the alias table of a document type, defaulting to invoices.
func ForType(t document.Type) AliasTable {
	switch t {
	case document.TypePurchaseOrder:
		return PurchaseOrderAliases
	case document.TypeGoodsReceipt:
		return GoodsReceiptAliases
	default:
		return InvoiceAliases
	}
}

// WithOverrides returns a copy of the table where merchant aliases take
// precedence over the built-in ones. A key prefixed with "line." targets line
// item fields; unprefixed keys target header fields.
func (t AliasTable) WithOverrides(overrides map[string][]string) AliasTable {
	if len(overrides) == 0 {
		return t
	}
	out := AliasTable{
		Type:   t.Type,
		Header: copyAliases(t.Header),
		Line:   copyAliases(t.Line),
	}
	for key, aliases := range overrides {
		target, field := out.Header, key
		if rest, ok := strings.CutPrefix(key, linePrefix); ok {
			target, field = out.Line, rest
		}
		target[field] = append(append([]string(nil), aliases...), target[field]...)
	}
	return out
}

const linePrefix = "line."

func copyAliases(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
