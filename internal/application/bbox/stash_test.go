package bbox

import (
	"reflect"
	"testing"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

func sampleDocument() document.Document {
	doc := document.Document{
		InvoiceNumber: "INV-9",
		TotalAmount:   document.MustAmount("30"),
		BoundingBoxes: document.BoundingBoxes{
			document.FieldInvoiceNumber: {{Width: 0.1, Height: 0.02, Left: 0.6, Top: 0.1, Page: 1}},
		},
		LineItems: []document.LineItem{
			{
				Description:   "Widget",
				TotalPrice:    document.MustAmount("10"),
				BoundingBoxes: document.BoundingBoxes{document.FieldDescription: {{Width: 0.2, Page: 1}}},
			},
			{
				Description:   "Gadget",
				TotalPrice:    document.MustAmount("20"),
				BoundingBoxes: document.BoundingBoxes{document.FieldDescription: {{Width: 0.3, Page: 2}}},
			},
		},
	}
	doc.Normalize()
	return doc
}

func TestStripRestore_RoundTrip(t *testing.T) {
	doc := sampleDocument()

	slim, stash := Strip(doc)
	restored := Restore(slim, stash)

	if !reflect.DeepEqual(doc, restored) {
		t.Errorf("expected restore(strip(d)) == d\nwant: %+v\ngot:  %+v", doc, restored)
	}
}

func TestStrip_RemovesGeometry(t *testing.T) {
	doc := sampleDocument()

	slim, stash := Strip(doc)

	if slim.BoundingBoxes != nil {
		t.Error("expected header boxes to be removed")
	}
	for i, item := range slim.LineItems {
		if item.BoundingBoxes != nil {
			t.Errorf("line %d: expected boxes to be removed", i)
		}
		if item.ItemListID != ItemID(i) {
			t.Errorf("line %d: expected id %s, got %s", i, ItemID(i), item.ItemListID)
		}
	}
	if len(stash.Lines) != 2 {
		t.Errorf("expected 2 stashed lines, got %d", len(stash.Lines))
	}
	if doc.LineItems[0].BoundingBoxes == nil {
		t.Error("expected the original document to keep its boxes")
	}
}

func TestRestore_ReorderedAndDroppedLines(t *testing.T) {
	doc := sampleDocument()
	slim, stash := Strip(doc)

	// Backend reversed the lines, lost the tag of one and added an unknown one.
	out := slim.Clone()
	out.LineItems = []document.LineItem{slim.LineItems[1], slim.LineItems[0], {Description: "Extra", ItemListID: "item_42"}}
	out.LineItems[1].ItemListID = ""

	restored := Restore(out, stash)

	if got := restored.LineItems[0].BoundingBoxes[document.FieldDescription][0].Page; got != 2 {
		t.Errorf("expected reordered line to receive its own boxes (page 2), got %d", got)
	}
	if restored.LineItems[1].BoundingBoxes != nil {
		t.Error("expected untagged line to lose its boxes")
	}
	if restored.LineItems[2].BoundingBoxes != nil {
		t.Error("expected unknown id to lose its boxes")
	}
	for i, item := range restored.LineItems {
		if item.ItemListID != "" {
			t.Errorf("line %d: expected transient id to be removed, got %q", i, item.ItemListID)
		}
	}
	if len(restored.BoundingBoxes[document.FieldInvoiceNumber]) != 1 {
		t.Error("expected header boxes to be restored verbatim")
	}
}
