package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money value errors.
var (
	ErrInvalidAmount    = errors.New("amount cannot be negative")
	ErrInvalidCurrency  = errors.New("currency code is required")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrNegativeResult   = errors.New("result cannot be negative")
)

// centTolerance is the rounding slack allowed when comparing totals.
var centTolerance = decimal.NewFromFloat(0.01)

// Money is an immutable amount + ISO 4217 currency pair. The zero value is
// not valid; construct through NewMoney.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney builds a Money, rejecting negative amounts and blank currencies.
// The currency is trimmed and uppercased.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount, currency: cur}, nil
}

// NewMoneyFromFloat is a convenience constructor for literal amounts.
func NewMoneyFromFloat(amount float64, currency string) (Money, error) {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// ParseMoney reverses Money.String ("123.45 USD").
func ParseMoney(s string) (Money, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 2 {
		return Money{}, fmt.Errorf("parse money %q: want \"<amount> <currency>\"", s)
	}
	amount, err := decimal.NewFromString(parts[0])
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return NewMoney(amount, parts[1])
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns m + other; both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: cannot add %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other. Currencies must match and the result may not be
// negative.
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrCurrencyMismatch, other.currency, m.currency)
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m.amount, other.amount)
	}
	return Money{amount: result, currency: m.currency}, nil
}

// Mul returns m scaled by factor, in m's currency.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	return NewMoney(m.amount.Mul(factor), m.currency)
}

// Cmp compares two amounts of the same currency: -1 if m < other, 0 if
// equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("%w: cannot compare %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal reports value equality (amount and currency).
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}
