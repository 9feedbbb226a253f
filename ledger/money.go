/*
money.go - Amount and percent-or-fixed deduction primitives

PURPOSE:
  Every amount, price and percentage in the engine is decimal-backed; no
  float64 arithmetic ever touches a balance. Money wraps decimal.Decimal so
  domain code reads as arithmetic on amounts, not on raw decimals.

DEDUCTIONS:
  Invoice fields accept either a plain number ("50") or a percentage
  ("10%"). That distinction is parsed ONCE at the boundary into a tagged
  Deduction value, never re-parsed on every read.

SEE ALSO:
  - settlement.go: consumes Deduction when computing invoices
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

// ParseMoney parses a plain decimal amount. Empty input is zero; that is
// how blank form fields are recorded throughout the source data.
func ParseMoney(field, s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroMoney(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &InvalidInputError{Field: field, Value: s, Reason: "not a number"}
	}
	return Money{Value: d}, nil
}

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) Mul(q decimal.Decimal) Money    { return Money{Value: m.Value.Mul(q)} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }

func (m Money) String() string { return m.Value.StringFixed(2) }

// =============================================================================
// DEDUCTION - fixed amount or percentage of gross
// =============================================================================

type DeductionKind string

const (
	DeductionFixed   DeductionKind = "fixed"
	DeductionPercent DeductionKind = "percent"
)

// Deduction is a charge subtracted from a gross goods value. A percent
// deduction is resolved against the gross at settlement time.
type Deduction struct {
	Kind  DeductionKind
	Value decimal.Decimal
}

func FixedDeduction(amount Money) Deduction {
	return Deduction{Kind: DeductionFixed, Value: amount.Value}
}

func PercentDeduction(rate decimal.Decimal) Deduction {
	return Deduction{Kind: DeductionPercent, Value: rate}
}

// ParseDeduction parses a percent-or-fixed field. "10%" is ten percent of
// gross; "50" is fifty flat; empty is zero flat.
func ParseDeduction(field, s string) (Deduction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Deduction{Kind: DeductionFixed, Value: decimal.Zero}, nil
	}
	if strings.HasSuffix(s, "%") {
		rate, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		if err != nil {
			return Deduction{}, &InvalidInputError{Field: field, Value: s, Reason: "not a percentage"}
		}
		return Deduction{Kind: DeductionPercent, Value: rate}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Deduction{}, &InvalidInputError{Field: field, Value: s, Reason: "not a number"}
	}
	return Deduction{Kind: DeductionFixed, Value: d}, nil
}

var hundred = decimal.NewFromInt(100)

// AmountOf resolves the deduction against a gross value.
func (d Deduction) AmountOf(gross Money) Money {
	if d.Kind == DeductionPercent {
		return Money{Value: gross.Value.Mul(d.Value).Div(hundred)}
	}
	return Money{Value: d.Value}
}

// String renders the deduction the way it was entered: "10%" or "50.00".
func (d Deduction) String() string {
	if d.Kind == DeductionPercent {
		return d.Value.String() + "%"
	}
	return d.Value.StringFixed(2)
}
