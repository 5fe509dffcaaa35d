package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the marketplace settlement currency.
const DefaultCurrency = "TON"

// Money is an immutable currency-tagged decimal amount. All arithmetic and
// comparisons require matching currencies; a mismatch indicates a data-mapping
// bug upstream and panics rather than returning an error.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney creates a Money value. An empty currency falls back to
// DefaultCurrency.
func NewMoney(amount decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// MoneyFromFloat converts a float amount into Money in the default currency.
func MoneyFromFloat(v float64) Money {
	return NewMoney(decimal.NewFromFloat(v), DefaultCurrency)
}

// MoneyFromString parses a decimal string into Money in the default currency.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return NewMoney(d, DefaultCurrency), nil
}

func (m Money) mustMatch(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.Currency, other.Currency))
	}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	m.mustMatch(other)
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// MulRate scales the amount by a dimensionless rate.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate), Currency: m.Currency}
}

// Ratio returns m / other as a plain float. Used for discount percentages
// where exactness no longer matters.
func (m Money) Ratio(other Money) float64 {
	m.mustMatch(other)
	f, _ := m.Amount.Div(other.Amount).Float64()
	return f
}

// Cmp returns -1, 0 or 1 comparing m against other.
func (m Money) Cmp(other Money) int {
	m.mustMatch(other)
	return m.Amount.Cmp(other.Amount)
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) bool { return m.Cmp(other) < 0 }

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) bool { return m.Cmp(other) > 0 }

// Equal reports m == other.
func (m Money) Equal(other Money) bool { return m.Cmp(other) == 0 }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}
