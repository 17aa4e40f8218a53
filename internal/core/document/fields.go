package document

// Canonical header field names.
const (
	FieldInvoiceNumber     = "invoiceNumber"
	FieldInvoiceDate       = "invoiceDate"
	FieldDueDate           = "dueDate"
	FieldPONumber          = "poNumber"
	FieldCustomerReference = "customerReference"
	FieldSupplierName      = "supplierName"
	FieldSupplierCode      = "supplierCode"
	FieldSupplierAddress   = "supplierAddress"
	FieldBuyerName         = "buyerName"
	FieldBuyerAddress      = "buyerAddress"
	FieldStoreName         = "storeName"
	FieldLocationCode      = "locationCode"
	FieldContractNumber    = "contractNumber"
	FieldAccountNumber     = "accountNumber"
	FieldLeaseNumber       = "leaseNumber"
	FieldCategory          = "category"
	FieldBillingPeriod     = "billingPeriod"
	FieldRemarks           = "remarks"
	FieldCurrency          = "currency"
	FieldTotalAmount       = "totalAmount"
	FieldTaxAmount         = "taxAmount"
)

// Canonical line item field names.
const (
	FieldDescription = "description"
	FieldItemCode    = "itemCode"
	FieldItemName    = "itemName"
	FieldQuantity    = "quantity"
	FieldUOM         = "uom"
	FieldUnitPrice   = "unitPrice"
	FieldTaxRate     = "taxRate"
	FieldLineTax     = "taxAmount"
	FieldTotalPrice  = "totalPrice"
)

var headerText = map[string]func(*Document) *string{
	FieldInvoiceNumber:     func(d *Document) *string { return &d.InvoiceNumber },
	FieldInvoiceDate:       func(d *Document) *string { return &d.InvoiceDate },
	FieldDueDate:           func(d *Document) *string { return &d.DueDate },
	FieldPONumber:          func(d *Document) *string { return &d.PurchaseOrderNumber },
	FieldCustomerReference: func(d *Document) *string { return &d.CustomerReference },
	FieldSupplierName:      func(d *Document) *string { return &d.SupplierName },
	FieldSupplierCode:      func(d *Document) *string { return &d.SupplierCode },
	FieldSupplierAddress:   func(d *Document) *string { return &d.SupplierAddress },
	FieldBuyerName:         func(d *Document) *string { return &d.BuyerName },
	FieldBuyerAddress:      func(d *Document) *string { return &d.BuyerAddress },
	FieldStoreName:         func(d *Document) *string { return &d.StoreName },
	FieldLocationCode:      func(d *Document) *string { return &d.LocationCode },
	FieldContractNumber:    func(d *Document) *string { return &d.ContractNumber },
	FieldAccountNumber:     func(d *Document) *string { return &d.AccountNumber },
	FieldLeaseNumber:       func(d *Document) *string { return &d.LeaseNumber },
	FieldCategory:          func(d *Document) *string { return &d.Category },
	FieldBillingPeriod:     func(d *Document) *string { return &d.BillingPeriod },
	FieldRemarks:           func(d *Document) *string { return &d.Remarks },
	FieldCurrency:          func(d *Document) *string { return &d.Currency },
}

var headerAmounts = map[string]func(*Document) *Amount{
	FieldTotalAmount: func(d *Document) *Amount { return &d.TotalAmount },
	FieldTaxAmount:   func(d *Document) *Amount { return &d.TaxAmount },
}

var lineText = map[string]func(*LineItem) *string{
	FieldDescription: func(l *LineItem) *string { return &l.Description },
	FieldItemCode:    func(l *LineItem) *string { return &l.ItemCode },
	FieldItemName:    func(l *LineItem) *string { return &l.ItemName },
	FieldUOM:         func(l *LineItem) *string { return &l.UOM },
}

var lineAmounts = map[string]func(*LineItem) *Amount{
	FieldQuantity:   func(l *LineItem) *Amount { return &l.Quantity },
	FieldUnitPrice:  func(l *LineItem) *Amount { return &l.UnitPrice },
	FieldTaxRate:    func(l *LineItem) *Amount { return &l.TaxRate },
	FieldLineTax:    func(l *LineItem) *Amount { return &l.TaxAmount },
	FieldTotalPrice: func(l *LineItem) *Amount { return &l.TotalPrice },
}

// HeaderFields lists every canonical header field name.
func HeaderFields() []string {
	names := make([]string, 0, len(headerText)+len(headerAmounts))
	for name := range headerText {
		names = append(names, name)
	}
	for name := range headerAmounts {
		names = append(names, name)
	}
	return names
}

// LineFields lists every canonical line item field name.
func LineFields() []string {
	names := make([]string, 0, len(lineText)+len(lineAmounts))
	for name := range lineText {
		names = append(names, name)
	}
	for name := range lineAmounts {
		names = append(names, name)
	}
	return names
}

// Field returns the rendered value of a header field and whether the name is known.
func (d *Document) Field(name string) (string, bool) {
	if get, ok := headerText[name]; ok {
		return *get(d), true
	}
	if get, ok := headerAmounts[name]; ok {
		return get(d).String(), true
	}
	return "", false
}

// SetField assigns a raw value to a header field. Unknown names are ignored.
func (d *Document) SetField(name, value string) bool {
	if get, ok := headerText[name]; ok {
		*get(d) = value
		return true
	}
	if get, ok := headerAmounts[name]; ok {
		*get(d) = ParseAmount(value)
		return true
	}
	return false
}

// Field returns the rendered value of a line field and whether the name is known.
func (l *LineItem) Field(name string) (string, bool) {
	if get, ok := lineText[name]; ok {
		return *get(l), true
	}
	if get, ok := lineAmounts[name]; ok {
		return get(l).String(), true
	}
	return "", false
}

// SetField assigns a raw value to a line field. Unknown names are ignored.
func (l *LineItem) SetField(name, value string) bool {
	if get, ok := lineText[name]; ok {
		*get(l) = value
		return true
	}
	if get, ok := lineAmounts[name]; ok {
		*get(l) = ParseAmount(value)
		return true
	}
	return false
}
