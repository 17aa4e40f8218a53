package bbox

import (
	"fmt"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

// Stash holds the geometry removed from a document before it is sent to the
// generative backend. It is only valid for the Strip/Restore cycle that produced it.
type Stash struct {
	Header document.BoundingBoxes
	Lines  map[string]document.BoundingBoxes
}

// ItemID returns the transient id assigned to the line at index.
func ItemID(index int) string {
	return fmt.Sprintf("item_%d", index)
}

// Strip returns a copy of doc without bounding boxes. Each line item is tagged
// with a positional item_list_id so Restore can reattach its geometry.
func Strip(doc document.Document) (document.Document, Stash) {
	slim := doc.Clone()
	stash := Stash{
		Header: slim.BoundingBoxes,
		Lines:  make(map[string]document.BoundingBoxes, len(slim.LineItems)),
	}
	slim.BoundingBoxes = nil

	for i := range slim.LineItems {
		id := ItemID(i)
		slim.LineItems[i].ItemListID = id
		stash.Lines[id] = slim.LineItems[i].BoundingBoxes
		slim.LineItems[i].BoundingBoxes = nil
	}
	return slim, stash
}

// Restore reattaches the stashed geometry to a document returned by the backend.
// Header boxes come back verbatim. Line items are matched by item_list_id; a
// line the backend dropped or failed to tag loses its boxes. Transient ids never
// survive Restore.
func Restore(out document.Document, stash Stash) document.Document {
	restored := out.Clone()
	restored.BoundingBoxes = stash.Header.Clone()
	if restored.BoundingBoxes == nil {
		restored.BoundingBoxes = document.BoundingBoxes{}
	}

	for i := range restored.LineItems {
		item := &restored.LineItems[i]
		if boxes, ok := stash.Lines[item.ItemListID]; ok && item.ItemListID != "" {
			item.BoundingBoxes = boxes.Clone()
		} else {
			item.BoundingBoxes = nil
		}
		item.ItemListID = ""
	}
	return restored
}
