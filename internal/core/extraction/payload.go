package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyPayload is returned when an extraction result carries no fields.
var ErrEmptyPayload = errors.New("extraction: empty payload")

// lineItemKeys are the payload keys that hold the line item table, in priority order.
var lineItemKeys = []string{"service_table", "LineItems", "line_items"}

// Box is a raw geometry rectangle as produced by the extraction service.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
}

// Geometry locates one occurrence of a field.
type Geometry struct {
	Page int
	Box  Box
}

// Field is a single extracted value with its source geometry.
type Field struct {
	Value      string
	Confidence float64
	Geometry   []Geometry
}

// Payload is the parsed extraction result of one source file.
type Payload struct {
	Class      string
	Confidence float64
	Fields     map[string]Field
	LineItems  []map[string]Field
}

// Parse decodes raw extraction JSON.
func Parse(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse extraction payload: %w", err)
	}
	if len(p.Fields) == 0 && len(p.LineItems) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	return p, nil
}

// UnmarshalJSON accepts both the flat {field: {value, geometry}} shape and the
// service envelope carrying explainability_info, matched_blueprint and document_class.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}

	p.Fields = map[string]Field{}
	p.LineItems = nil

	if raw, ok := root["document_class"]; ok {
		var class struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &class) == nil {
			p.Class = class.Type
		}
	}
	if raw, ok := root["matched_blueprint"]; ok {
		var blueprint struct {
			Confidence float64 `json:"confidence"`
		}
		if json.Unmarshal(raw, &blueprint) == nil {
			p.Confidence = blueprint.Confidence
		}
	}
	if raw, ok := root["confidence"]; ok && p.Confidence == 0 {
		p.Confidence = parseFloat(raw)
	}

	source := root
	if raw, ok := root["explainability_info"]; ok {
		var entries []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("explainability_info: %w", err)
		}
		if len(entries) > 0 {
			source = entries[0]
		} else {
			source = nil
		}
	}

	for _, key := range lineItemKeys {
		raw, ok := source[key]
		if !ok {
			continue
		}
		items, err := parseLineItems(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.LineItems = items
		break
	}

	for key, raw := range source {
		if isReserved(key) {
			continue
		}
		field, ok := parseField(raw)
		if !ok {
			continue
		}
		p.Fields[key] = field
	}
	return nil
}

func isReserved(key string) bool {
	switch key {
	case "document_class", "matched_blueprint", "confidence", "explainability_info", "inference_result", "split_document":
		return true
	}
	for _, k := range lineItemKeys {
		if key == k {
			return true
		}
	}
	return false
}

func parseLineItems(raw json.RawMessage) ([]map[string]Field, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	items := make([]map[string]Field, 0, len(rows))
	for _, row := range rows {
		item := make(map[string]Field, len(row))
		for key, value := range row {
			if field, ok := parseField(value); ok {
				item[key] = field
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// parseField reads a {value, geometry, confidence} object. Bare scalars are
// accepted as values without geometry.
func parseField(raw json.RawMessage) (Field, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Field{}, false
	}
	switch raw[0] {
	case '{':
	case '[':
		return Field{}, false
	default:
		return Field{Value: scalarString(raw)}, true
	}

	var obj struct {
		Value      json.RawMessage `json:"value"`
		Confidence json.RawMessage `json:"confidence"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Value == nil {
		return Field{}, false
	}

	return Field{
		Value:      scalarString(obj.Value),
		Confidence: parseFloat(obj.Confidence),
		Geometry:   parseGeometry(obj.Geometry),
	}, true
}

func parseGeometry(raw json.RawMessage) []Geometry {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	type entry struct {
		Page        json.RawMessage `json:"page"`
		BoundingBox Box             `json:"boundingBox"`
	}

	var entries []entry
	if raw[0] == '{' {
		var single entry
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil
		}
		entries = []entry{single}
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	out := make([]Geometry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Geometry{Page: CoercePage(e.Page), Box: e.BoundingBox})
	}
	return out
}

// CoercePage reduces a page reference to a single positive integer. Nested
// arrays are unwrapped to their first element; anything ambiguous yields 1.
func CoercePage(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 1
	}

	switch raw[0] {
	case '[':
		var nested []json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 {
			return 1
		}
		return CoercePage(nested[0])
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 1
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			return 1
		}
		return n
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || f < 1 {
			return 1
		}
		return int(f)
	}
}

func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}

func parseFloat(raw json.RawMessage) float64 {
	s := scalarString(raw)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
