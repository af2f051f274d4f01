package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/domain"
)

func usd(t *testing.T, amount string) domain.Money {
	t.Helper()
	d, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	m, err := domain.NewMoney(d, "USD")
	require.NoError(t, err)
	return m
}

func validInvoice(t *testing.T) *domain.Invoice {
	t.Helper()
	inv, err := domain.NewInvoice("INV-001", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		"Fresh Foods Inc.", "Acme Customer", usd(t, "31.50"))
	require.NoError(t, err)

	item, err := domain.NewLineItem(1, "Apples", decimal.NewFromInt(2), "kg", usd(t, "15.75"), inv.ID)
	require.NoError(t, err)
	require.NoError(t, inv.AddLineItem(item))
	return inv
}

func errorCodes(r Result) []string {
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func warningCodes(r Result) []string {
	codes := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestValidInvoicePasses(t *testing.T) {
	result := NewValidator(nil).Validate(validInvoice(t))

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestMissingFieldsCollectAllErrors(t *testing.T) {
	inv := &domain.Invoice{TotalAmount: usd(t, "0")}

	result := NewValidator(nil).Validate(inv)

	assert.False(t, result.Valid)
	assert.ElementsMatch(t,
		[]string{"InvoiceNumber", "InvoiceDate", "TotalAmount", "VendorName", "CustomerName", "LineItems"},
		errorCodes(result))
}

func TestLineItemErrorsCarryPosition(t *testing.T) {
	inv := validInvoice(t)
	inv.LineItems = append(inv.LineItems, &domain.LineItem{
		LineNumber: 2,
		Quantity:   decimal.Zero,
		UnitPrice:  usd(t, "0"),
		LineTotal:  usd(t, "0"),
	})

	result := NewValidator(nil).Validate(inv)

	assert.False(t, result.Valid)
	assert.Contains(t, errorCodes(result), "LineItem[1].Description")
	assert.Contains(t, errorCodes(result), "LineItem[1].Quantity")
	assert.Contains(t, errorCodes(result), "LineItem[1].UnitPrice")
}

func TestDuplicateDescriptionsWarn(t *testing.T) {
	inv := validInvoice(t)
	item, err := domain.NewLineItem(2, "Apples", decimal.NewFromInt(1), "kg", usd(t, "15.75"), inv.ID)
	require.NoError(t, err)
	require.NoError(t, inv.AddLineItem(item))
	// Keep the stated total in sync so only the duplicate warning fires.
	inv.TotalAmount = usd(t, "47.25")

	result := NewValidator(nil).Validate(inv)

	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "LineItems", result.Warnings[0].Code)
	assert.Contains(t, result.Warnings[0].Message, "Apples")
}

func TestAmountMismatchWarnsBeyondTolerance(t *testing.T) {
	inv := validInvoice(t)
	inv.TotalAmount = usd(t, "40.00")

	result := NewValidator(nil).Validate(inv)

	assert.True(t, result.Valid)
	assert.Contains(t, warningCodes(result), constants.CodeAmountMismatch)
}

func TestAmountWithinToleranceDoesNotWarn(t *testing.T) {
	inv := validInvoice(t)
	inv.TotalAmount = usd(t, "31.51")

	result := NewValidator(nil).Validate(inv)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}
