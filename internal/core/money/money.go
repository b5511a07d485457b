// Package money implements the fixed-precision monetary value used by the
// ledger, the savings and loan engine and the SHU calculator.
//
// A Money is a decimal whose scale is always exactly two fractional digits.
// Strict constructors (Parse, FromDecimal, FromFloat) reject input that
// carries more precision; RoundDecimal is the only constructor that rounds.
// The rounding rule is round-half-up at two decimals, applied away from zero
// for negative values (10.005 -> 10.01, -10.005 -> -10.01).
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every Money value.
const Scale = 2

// Money is an immutable monetary amount with two fractional digits.
// The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Money{}

// limit is the first magnitude that no longer fits NUMERIC(20,2).
var limit = decimal.New(1, 18)

// FromCents builds a Money from an integer number of cents.
func FromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -Scale)}
}

// FromInt builds a Money from a whole number of currency units.
func FromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// Parse builds a Money from a decimal string such as "1500.25".
// More than two significant fractional digits fail with ErrInvalidAmount.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, apperrors.NewAppError(apperrors.ErrInvalidAmount, fmt.Sprintf("%q is not a decimal number", s), err)
	}
	return FromDecimal(d)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal builds a Money from d, rejecting values with more than two
// significant fractional digits.
func FromDecimal(d decimal.Decimal) (Money, error) {
	rounded := d.Round(Scale)
	if !rounded.Equal(d) {
		return Zero, apperrors.NewAppError(apperrors.ErrInvalidAmount,
			fmt.Sprintf("%s has more than %d fractional digits", d.String(), Scale), nil)
	}
	if rounded.Abs().GreaterThanOrEqual(limit) {
		return Zero, apperrors.NewAppError(apperrors.ErrInvalidAmount,
			fmt.Sprintf("%s is out of range", d.String()), nil)
	}
	return Money{d: rounded}, nil
}

// FromFloat builds a Money from the shortest decimal representation of f.
// 10.005 is rejected; 10.5 is accepted.
func FromFloat(f float64) (Money, error) {
	return FromDecimal(decimal.NewFromFloat(f))
}

// RoundDecimal builds a Money from d rounding half-up at two decimals.
// Use it for computed amounts (ratios, percentages), never for user input.
func RoundDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(Scale)}
}

// Decimal returns the value as a decimal.Decimal with exponent -2.
func (m Money) Decimal() decimal.Decimal {
	return m.d.Round(Scale)
}

// Cents returns the value as an integer number of cents.
func (m Money) Cents() int64 {
	return m.d.Shift(Scale).IntPart()
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// Abs returns |m|.
func (m Money) Abs() Money {
	return Money{d: m.d.Abs()}
}

// MulDecimal returns m * factor rounded half-up to two decimals.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return RoundDecimal(m.d.Mul(factor))
}

// MulInt returns m * n. No rounding is needed.
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// Div returns m / divisor rounded half-up to two decimals.
// A zero divisor fails with ErrArithmetic.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Zero, apperrors.NewAppError(apperrors.ErrArithmetic, "division by zero", nil)
	}
	// DivRound keeps enough digits that the final half-up rounding is exact
	// for every 2-decimal dividend.
	return RoundDecimal(m.d.DivRound(divisor, 16)), nil
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal reports whether m == o.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// LessThan reports whether m < o.
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// GreaterThan reports whether m > o.
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }

// IsZero reports whether m == 0.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Min returns the smaller of m and o.
func Min(m, o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

// Max returns the larger of m and o.
func Max(m, o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Sum adds all values.
func Sum(values ...Money) Money {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// String formats the value with exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON encodes the value as a fixed two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a quoted or bare decimal and applies the strict
// precision rule.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidAmount, "invalid JSON amount", err)
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("money: scan %T: %w", src, err)
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
