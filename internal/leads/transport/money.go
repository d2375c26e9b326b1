package transport

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money accepts a JSON number, a JSON string or a form value.
type Money struct {
	decimal.Decimal
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	return m.Decimal.UnmarshalJSON(data)
}

// UnmarshalParam lets gin bind form and query values.
func (m *Money) UnmarshalParam(param string) error {
	d, err := decimal.NewFromString(param)
	if err != nil {
		return fmt.Errorf("invalid amount %q", param)
	}
	m.Decimal = d
	return nil
}

// Ptr returns the amount as a pointer, or nil when m is nil.
func (m *Money) Ptr() *decimal.Decimal {
	if m == nil {
		return nil
	}
	d := m.Decimal
	return &d
}
