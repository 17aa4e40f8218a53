package document

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary or numeric field that may be absent in the source document.
// An absent amount counts as zero in arithmetic and renders as the placeholder "-".
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps a decimal as a present amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromInt builds a present amount from an integer.
func AmountFromInt(n int64) Amount {
	return NewAmount(decimal.NewFromInt(n))
}

// MustAmount parses s and panics when it is not a number. Intended for tests and constants.
func MustAmount(s string) Amount {
	a := ParseAmount(s)
	if !a.Valid {
		panic("document: invalid amount " + s)
	}
	return a
}

// ParseAmount reads a number as printed on a document. Thousands separators,
// currency symbols and surrounding text are ignored; accounting style
// parentheses mark a negative value.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if IsBlank(s) {
		return Amount{}
	}

	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return Amount{}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Amount{}
	}
	if negative {
		d = d.Neg()
	}
	return NewAmount(d)
}

// Decimal returns the value, or zero when the amount is absent.
func (a Amount) Decimal() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

// String renders the amount, using the placeholder when absent.
func (a Amount) String() string {
	if !a.Valid {
		return Placeholder
	}
	return a.Value.String()
}

// Equal compares presence and numeric value.
func (a Amount) Equal(other Amount) bool {
	if a.Valid != other.Valid {
		return false
	}
	return !a.Valid || a.Value.Equal(other.Value)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return json.Marshal(Placeholder)
	}
	return []byte(a.Value.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}

	d, err := decimal.NewFromString(string(data))
	if err != nil {
		*a = Amount{}
		return nil
	}
	*a = NewAmount(d)
	return nil
}
