package postgres

import (
	"strings"
	"testing"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

func TestDocumentArgs_MatchPlaceholders(t *testing.T) {
	doc := document.Document{
		ID:          "doc-1",
		TotalAmount: document.MustAmount("30.00"),
		Status:      document.StatusSuccess,
		CreatedAt:   time.Now(),
	}

	args := documentArgs(doc)

	placeholders := strings.Count(upsertDocumentSQL, "$")
	if len(args)+1 != placeholders {
		t.Fatalf("expected %d arguments plus bounding boxes, got %d", placeholders-1, len(args))
	}
	if args[0] != "doc-1" {
		t.Errorf("expected id first, got %v", args[0])
	}
	if args[24] != "30" {
		t.Errorf("expected total amount as numeric text, got %v", args[24])
	}
	if args[25] != nil {
		t.Errorf("expected absent tax amount as NULL, got %v", args[25])
	}
}

func TestLineArgs(t *testing.T) {
	item := document.LineItem{
		Description: "Widget",
		Quantity:    document.MustAmount("2"),
		UnitPrice:   document.MustAmount("10.50"),
		Status:      document.StatusExceptions,
	}

	args := lineArgs("doc-1", 3, item)

	if len(args) != 14 {
		t.Fatalf("expected 14 arguments before bounding boxes, got %d", len(args))
	}
	if args[1] != 3 || args[6] != "2" || args[8] != "10.5" {
		t.Errorf("unexpected arguments %v", args)
	}
	if args[12] != "Exceptions" {
		t.Errorf("expected status text, got %v", args[12])
	}
}

func TestMarshalBoxes(t *testing.T) {
	got, err := marshalBoxes(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("expected empty object, got %s", got)
	}

	got, err = marshalBoxes(document.BoundingBoxes{
		document.FieldInvoiceDate: {{Width: 0.1, Height: 0.02, Left: 0.7, Top: 0.1, Page: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"invoiceDate":[{"width":0.1,"height":0.02,"left":0.7,"top":0.1,"page":1}]}`
	if string(got) != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
