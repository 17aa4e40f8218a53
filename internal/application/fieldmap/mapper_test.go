package fieldmap

import (
	"testing"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/extraction"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
	"3tcapital/ms_extraccion_core/internal/testutil"
)

const samplePayload = `{
	"confidence": 0.91,
	"InvoiceId": {"value": "INV-001", "geometry": [{"page": [1], "boundingBox": {"width": 0.123456, "height": 0.02, "left": 0.5, "top": 0.25}}]},
	"InvoiceNumber": {"value": "SHOULD-NOT-WIN"},
	"invoice_date": {"value": "05/12/2025"},
	"vendor name": {"value": "Acme Supplies"},
	"InvoiceTotal": {"value": "1,250.00"},
	"service_table": [
		{
			"Description": {"value": "Paper A4", "geometry": [{"page": "2", "boundingBox": {"width": 0.3, "height": 0.01, "left": 0.1, "top": 0.4}}]},
			"Qty": {"value": "10"},
			"UnitPrice": {"value": "125"},
			"Amount": {"value": "1250"}
		},
		{
			"Description": {"value": "Delivery"},
			"Unit": {"value": "TRIP"}
		}
	]
}`

func TestMapper_Map(t *testing.T) {
	m := NewMapper(testutil.NewNullLogger())
	payload, err := extraction.Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	doc := m.Map(payload, InvoiceAliases)

	if doc.InvoiceNumber != "INV-001" {
		t.Errorf("expected first alias to win, got %q", doc.InvoiceNumber)
	}
	if doc.InvoiceDate != "05/12/2025" {
		t.Errorf("expected invoice date, got %q", doc.InvoiceDate)
	}
	if doc.SupplierName != "Acme Supplies" {
		t.Errorf("expected normalized key match for supplier, got %q", doc.SupplierName)
	}
	if !doc.TotalAmount.Equal(document.MustAmount("1250")) {
		t.Errorf("expected total 1250, got %s", doc.TotalAmount)
	}
	if doc.TaxAmount.Valid {
		t.Errorf("expected absent tax to stay a placeholder, got %s", doc.TaxAmount)
	}
	if doc.Currency != document.Placeholder {
		t.Errorf("expected absent currency to be %q, got %q", document.Placeholder, doc.Currency)
	}
	if doc.ConfidenceScore != 0.91 {
		t.Errorf("expected confidence 0.91, got %v", doc.ConfidenceScore)
	}

	boxes := doc.BoundingBoxes[document.FieldInvoiceNumber]
	if len(boxes) != 1 {
		t.Fatalf("expected one invoice number box, got %d", len(boxes))
	}
	if boxes[0].Width != 0.1235 {
		t.Errorf("expected width rounded to 4 decimals, got %v", boxes[0].Width)
	}
	if boxes[0].Page != 1 {
		t.Errorf("expected page 1, got %d", boxes[0].Page)
	}

	if len(doc.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(doc.LineItems))
	}
	first := doc.LineItems[0]
	if first.UOM != document.DefaultUOM {
		t.Errorf("expected default uom, got %q", first.UOM)
	}
	if !first.Quantity.Equal(document.MustAmount("10")) {
		t.Errorf("expected quantity 10, got %s", first.Quantity)
	}
	if got := first.BoundingBoxes[document.FieldDescription][0].Page; got != 2 {
		t.Errorf("expected string page to coerce to 2, got %d", got)
	}
	second := doc.LineItems[1]
	if second.UOM != "TRIP" {
		t.Errorf("expected uom TRIP, got %q", second.UOM)
	}
	if second.TotalPrice.Valid {
		t.Errorf("expected missing total price to be absent, got %s", second.TotalPrice)
	}
}

func TestMapper_MapFilesSkipsMalformed(t *testing.T) {
	m := NewMapper(testutil.NewNullLogger())
	files := []extraction.SourceFile{
		{Name: "results/a.json", Data: []byte(samplePayload)},
		{Name: "results/b.json", Data: []byte(`{"broken":`)},
		{Name: "results/c.json", Data: []byte(`{"InvoiceId": {"value": "INV-002"}}`)},
	}

	results := m.MapFiles(files, InvoiceAliases)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantOutcomes := []extraction.Outcome{extraction.OutcomeOK, extraction.OutcomeSkip, extraction.OutcomeOK}
	for i, want := range wantOutcomes {
		if results[i].Outcome != want {
			t.Errorf("result %d: expected %s, got %s", i, want, results[i].Outcome)
		}
	}
	if results[0].Document.SourceFile != "a.json" {
		t.Errorf("expected source file a.json, got %q", results[0].Document.SourceFile)
	}
	if results[2].Document.InvoiceNumber != "INV-002" {
		t.Errorf("expected later files to still be mapped, got %q", results[2].Document.InvoiceNumber)
	}
	if results[1].Err == nil {
		t.Error("expected skipped result to carry the parse error")
	}
}

func TestAliasTable_WithOverrides(t *testing.T) {
	table := InvoiceAliases.WithOverrides(map[string][]string{
		document.FieldInvoiceNumber:         {"TaxInvoiceNo"},
		"line." + document.FieldDescription: {"Service"},
	})

	if table.Header[document.FieldInvoiceNumber][0] != "TaxInvoiceNo" {
		t.Errorf("expected merchant alias first, got %v", table.Header[document.FieldInvoiceNumber])
	}
	if table.Line[document.FieldDescription][0] != "Service" {
		t.Errorf("expected line alias first, got %v", table.Line[document.FieldDescription])
	}
	if InvoiceAliases.Header[document.FieldInvoiceNumber][0] == "TaxInvoiceNo" {
		t.Error("expected built-in table to stay untouched")
	}
}

func TestApplyPolicy_CustomerRefAsPO(t *testing.T) {
	doc := document.Document{PurchaseOrderNumber: document.Placeholder, CustomerReference: "PO-77"}

	ApplyPolicy(&doc, merchant.Policy{})
	if doc.PurchaseOrderNumber != document.Placeholder {
		t.Errorf("expected no change without policy flag, got %q", doc.PurchaseOrderNumber)
	}

	ApplyPolicy(&doc, merchant.Policy{UseCustomerRefAsPO: true})
	if doc.PurchaseOrderNumber != "PO-77" {
		t.Errorf("expected customer reference to fill PO number, got %q", doc.PurchaseOrderNumber)
	}
}
