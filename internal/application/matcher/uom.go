package matcher

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/ms_extraccion_core/internal/core/document"
)

var leadingQuantity = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(.*)$`)

// SplitUOM reads a pack size printed in front of a unit, as in "12 PCS" or
// "6X500ML". It reports false when the unit does not start with a number.
func SplitUOM(uom string) (decimal.Decimal, string, bool) {
	parts := leadingQuantity.FindStringSubmatch(uom)
	if parts == nil {
		return decimal.Zero, uom, false
	}
	qty, err := decimal.NewFromString(parts[1])
	if err != nil || qty.IsZero() {
		return decimal.Zero, uom, false
	}
	unit := strings.TrimSpace(strings.TrimLeft(parts[2], "xX*"))
	if unit == "" {
		unit = document.DefaultUOM
	}
	return qty, strings.ToUpper(unit), true
}

// overrideQuantity replaces the quantity of item with the pack size of its unit.
func overrideQuantity(item *document.LineItem) {
	qty, unit, ok := SplitUOM(item.UOM)
	if !ok {
		return
	}
	item.Quantity = document.NewAmount(qty)
	item.UOM = unit
}
