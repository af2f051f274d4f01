package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMoney(t *testing.T, amount float64, currency string) Money {
	t.Helper()
	m, err := NewMoneyFromFloat(amount, currency)
	require.NoError(t, err)
	return m
}

func TestNewMoney(t *testing.T) {
	t.Run("normalizes currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), " usd ")
		require.NoError(t, err)
		assert.Equal(t, "USD", m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(-1), "USD")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("rejects blank currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(1), "   ")
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})
}

func TestMoneyStringRoundTrip(t *testing.T) {
	for _, s := range []string{"0 USD", "100.5 EUR", "47.25 GBP"} {
		m, err := ParseMoney(s)
		require.NoError(t, err)
		again, err := ParseMoney(m.String())
		require.NoError(t, err)
		assert.True(t, m.Equal(again), "round trip of %q", s)
	}
}

func TestMoneyAdd(t *testing.T) {
	a := mustMoney(t, 100.50, "USD")
	b := mustMoney(t, 50.25, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.75 USD", sum.String())

	_, err = a.Add(mustMoney(t, 50.25, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoneySub(t *testing.T) {
	t.Run("subtracts same currency", func(t *testing.T) {
		out, err := mustMoney(t, 100.50, "USD").Sub(mustMoney(t, 50.25, "USD"))
		require.NoError(t, err)
		assert.Equal(t, "50.25 USD", out.String())
	})

	t.Run("rejects negative result", func(t *testing.T) {
		_, err := mustMoney(t, 25.25, "USD").Sub(mustMoney(t, 100.50, "USD"))
		assert.ErrorIs(t, err, ErrNegativeResult)
	})

	t.Run("rejects currency mismatch", func(t *testing.T) {
		_, err := mustMoney(t, 100.50, "USD").Sub(mustMoney(t, 50.25, "EUR"))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})
}

func TestMoneyCmp(t *testing.T) {
	a := mustMoney(t, 10, "USD")
	b := mustMoney(t, 20, "USD")

	c, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = a.Cmp(mustMoney(t, 20, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}
