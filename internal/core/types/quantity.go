// Package types provides common quantity types shared across the domain.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity is a fixed-point stock quantity with 4 decimal places (scale 1e4).
//
// Rationale:
//   - Matches Postgres NUMERIC(15,4) semantics without floating point errors
//   - Stored as BIGINT in the ledger (scaled integer)
//   - The reconciliation epsilon (1e-4) is exactly one scaled unit, so diff
//     checks are plain integer comparisons instead of float tolerance dances
type Quantity int64

const QuantityScale int64 = 10_000

var quantityScaleDec = decimal.NewFromInt(QuantityScale)

// FromDecimal converts an exact decimal to a Quantity, rounding half-up
// to 4 fractional digits.
func FromDecimal(d decimal.Decimal) Quantity {
	return Quantity(d.Mul(quantityScaleDec).Round(0).IntPart())
}

// FromInt64Scaled wraps an already-scaled integer (e.g. read from the DB).
func FromInt64Scaled(v int64) Quantity { return Quantity(v) }

// ParseQuantity parses a decimal string ("12", "-3.25", "0.0001") into a
// Quantity. Exponent forms and garbage are rejected.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// ParseLenient parses a user-typed quantity, coercing blank or non-numeric
// input to zero. The breakdown calculator sums rows while the operator is
// still typing, so a half-finished cell must read as 0 instead of failing.
func ParseLenient(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		return 0
	}
	return q
}

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal returns the exact decimal value.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(q)).Div(quantityScaleDec)
}

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as a JSON number, preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseQuantity(s)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
