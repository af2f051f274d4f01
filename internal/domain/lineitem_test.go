package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineItem(t *testing.T) {
	invoiceID := uuid.New()

	t.Run("computes line total", func(t *testing.T) {
		item, err := NewLineItem(1, "Apples", decimal.NewFromInt(3), "kg", mustMoney(t, 15.75, "USD"), invoiceID)
		require.NoError(t, err)
		assert.Equal(t, "47.25 USD", item.LineTotal.String())
		assert.Equal(t, "USD", item.LineTotal.Currency())
		assert.Equal(t, invoiceID, item.InvoiceID)
	})

	t.Run("rejects blank description", func(t *testing.T) {
		_, err := NewLineItem(1, "  ", decimal.NewFromInt(1), "", mustMoney(t, 1, "USD"), invoiceID)
		assert.ErrorIs(t, err, ErrInvalidLineItem)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewLineItem(1, "Apples", decimal.Zero, "", mustMoney(t, 1, "USD"), invoiceID)
		assert.ErrorIs(t, err, ErrInvalidLineItem)
	})

	t.Run("rejects line number below one", func(t *testing.T) {
		_, err := NewLineItem(0, "Apples", decimal.NewFromInt(1), "", mustMoney(t, 1, "USD"), invoiceID)
		assert.ErrorIs(t, err, ErrInvalidLineItem)
	})
}
