package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-precision amount. It carries full precision internally
// and rounds to two decimal places only when serialized, so intermediate
// sums never lose precision and serialized reports are byte-stable.
type Money struct {
	decimal.Decimal
}

// Amount wraps a decimal value as Money.
func Amount(d decimal.Decimal) Money {
	return Money{d}
}

// MarshalJSON emits the amount as a plain JSON number with exactly two
// decimal places (banker-free half-up rounding, matching report output).
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.StringFixed(2)), nil
}

// UnmarshalJSON accepts both bare numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("parse money %q: %w", b, err)
	}
	m.Decimal = d
	return nil
}
