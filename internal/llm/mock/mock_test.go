package mock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIsDeterministicPerContent(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	first, _, err := e.ExtractInvoice(ctx, []byte("receipt bytes"), "a.pdf")
	require.NoError(t, err)
	second, _, err := e.ExtractInvoice(ctx, []byte("receipt bytes"), "b.pdf")
	require.NoError(t, err)

	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, first.VendorName, second.VendorName)
	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
	assert.Len(t, second.LineItems, len(first.LineItems))
	assert.EqualValues(t, 2, e.Calls())
}

func TestExtractTotalsAreConsistent(t *testing.T) {
	e := New(nil)

	fields, raw, err := e.ExtractInvoice(context.Background(), []byte("anything"), "x.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	require.NotEmpty(t, fields.LineItems)
	assert.Equal(t, "USD", fields.Currency)

	sum := decimal.Zero
	for _, li := range fields.LineItems {
		sum = sum.Add(li.LineTotal)
	}
	assert.True(t, sum.Equal(fields.TotalAmount))

	require.NotNil(t, fields.TaxAmount)
	require.NotNil(t, fields.Subtotal)
	assert.True(t, fields.TaxAmount.Add(*fields.Subtotal).Equal(fields.TotalAmount))
}

func TestExtractRespectsCancellation(t *testing.T) {
	e := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.ExtractInvoice(ctx, []byte("anything"), "x.pdf")
	assert.Error(t, err)
}
