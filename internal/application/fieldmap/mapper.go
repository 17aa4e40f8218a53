package fieldmap

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/ms_extraccion_core/internal/core/document"
	"3tcapital/ms_extraccion_core/internal/core/extraction"
	"3tcapital/ms_extraccion_core/internal/core/merchant"
)

// boxPrecision is the number of decimals kept on bounding box coordinates.
const boxPrecision = 4

// Mapper flattens extraction payloads into canonical documents.
type Mapper struct {
	log *slog.Logger
}

// NewMapper creates a field mapper.
func NewMapper(log *slog.Logger) *Mapper {
	return &Mapper{log: log.With("component", "fieldmap")}
}

// MapFiles parses and maps every file independently. A file that cannot be
// parsed is skipped with a reason and never aborts the rest of the batch.
func (m *Mapper) MapFiles(files []extraction.SourceFile, table AliasTable) []extraction.Result {
	results := make([]extraction.Result, 0, len(files))
	for _, f := range files {
		name := f.DisplayName()
		payload, err := extraction.Parse(f.Data)
		if err != nil {
			m.log.Warn("Skipping unreadable extraction result",
				"file", name,
				"error", err,
			)
			results = append(results, extraction.Skip(name, "malformed extraction result", err))
			continue
		}

		doc := m.Map(payload, table)
		doc.SourceFile = name
		results = append(results, extraction.OK(name, doc).WithClass(payload.Class))
	}
	return results
}

// Map builds a canonical document from a payload using the alias table.
func (m *Mapper) Map(p extraction.Payload, table AliasTable) document.Document {
	doc := document.Document{
		Type:            table.Type,
		ConfidenceScore: p.Confidence,
		BoundingBoxes:   document.BoundingBoxes{},
	}

	header := newIndex(p.Fields)
	for _, name := range sortedKeys(table.Header) {
		field, ok := header.lookup(table.Header[name])
		if !ok {
			continue
		}
		doc.SetField(name, field.Value)
		if boxes := convertGeometry(field.Geometry); len(boxes) > 0 {
			doc.BoundingBoxes[name] = boxes
		}
	}

	doc.LineItems = make([]document.LineItem, 0, len(p.LineItems))
	for _, row := range p.LineItems {
		item := document.LineItem{BoundingBoxes: document.BoundingBoxes{}}
		idx := newIndex(row)
		for _, name := range sortedKeys(table.Line) {
			field, ok := idx.lookup(table.Line[name])
			if !ok {
				continue
			}
			item.SetField(name, field.Value)
			if boxes := convertGeometry(field.Geometry); len(boxes) > 0 {
				item.BoundingBoxes[name] = boxes
			}
		}
		doc.LineItems = append(doc.LineItems, item)
	}

	doc.Normalize()
	return doc
}

// ApplyPolicy applies merchant rules that only depend on mapped values.
func ApplyPolicy(doc *document.Document, policy merchant.Policy) {
	if policy.UseCustomerRefAsPO && document.IsBlank(doc.PurchaseOrderNumber) && !document.IsBlank(doc.CustomerReference) {
		doc.PurchaseOrderNumber = doc.CustomerReference
	}
}

// index resolves aliases against payload keys: exact match first, then a
// case and separator insensitive match.
type index struct {
	fields     map[string]extraction.Field
	normalized map[string]string
}

func newIndex(fields map[string]extraction.Field) index {
	normalized := make(map[string]string, len(fields))
	for key := range fields {
		n := normalizeKey(key)
		if existing, ok := normalized[n]; !ok || key < existing {
			normalized[n] = key
		}
	}
	return index{fields: fields, normalized: normalized}
}

func (i index) lookup(aliases []string) (extraction.Field, bool) {
	for _, alias := range aliases {
		if f, ok := i.fields[alias]; ok {
			return f, true
		}
	}
	for _, alias := range aliases {
		if key, ok := i.normalized[normalizeKey(alias)]; ok {
			return i.fields[key], true
		}
	}
	return extraction.Field{}, false
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(key)
}

func convertGeometry(geometry []extraction.Geometry) []document.BoundingBox {
	if len(geometry) == 0 {
		return nil
	}
	boxes := make([]document.BoundingBox, 0, len(geometry))
	for _, g := range geometry {
		page := g.Page
		if page < 1 {
			page = 1
		}
		boxes = append(boxes, document.BoundingBox{
			Width:  round(g.Box.Width),
			Height: round(g.Box.Height),
			Left:   round(g.Box.Left),
			Top:    round(g.Box.Top),
			Page:   page,
		})
	}
	return boxes
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(boxPrecision).InexactFloat64()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
