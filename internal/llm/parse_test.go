package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanResponseStripsFences(t *testing.T) {
	in := "```json\n{\"invoiceNumber\": \"INV-1\"}\n```"
	assert.Equal(t, `{"invoiceNumber": "INV-1"}`, CleanResponse(in))

	assert.Equal(t, `{"a":1}`, CleanResponse("  {\"a\":1}  "))
}

func TestParseExtractionFullDocument(t *testing.T) {
	payload := `{
		"invoiceNumber": "INV-2024-001",
		"invoiceDate": "2024-03-15",
		"dueDate": "2024-04-15",
		"vendorName": "Acme Supplies",
		"customerName": "Globex Corp",
		"currency": "usd",
		"totalAmount": 157.50,
		"taxAmount": "7.50",
		"subtotal": 150.00,
		"lineItems": [
			{"description": "Widgets", "quantity": 3, "unit": "pcs", "unitPrice": 50.00, "lineTotal": 150.00}
		]
	}`

	fields, raw, err := ParseExtraction(payload, "invoice.pdf", nil)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))

	assert.Equal(t, "INV-2024-001", fields.InvoiceNumber)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), fields.InvoiceDate)
	require.NotNil(t, fields.DueDate)
	assert.Equal(t, "Acme Supplies", fields.VendorName)
	assert.Equal(t, "Globex Corp", fields.CustomerName)
	assert.Equal(t, "USD", fields.Currency)
	assert.Equal(t, "157.5", fields.TotalAmount.String())
	require.NotNil(t, fields.TaxAmount)
	assert.Equal(t, "7.5", fields.TaxAmount.String())
	require.NotNil(t, fields.Subtotal)

	require.Len(t, fields.LineItems, 1)
	item := fields.LineItems[0]
	assert.Equal(t, 1, item.LineNumber)
	assert.Equal(t, "Widgets", item.Description)
	assert.Equal(t, "3", item.Quantity.String())
	assert.Equal(t, "150", item.LineTotal.String())
}

func TestParseExtractionAppliesDefaults(t *testing.T) {
	fields, _, err := ParseExtraction(`{"lineItems": [{}]}`, "empty.pdf", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fields.InvoiceNumber, "UNKNOWN_"))
	assert.Len(t, fields.InvoiceNumber, len("UNKNOWN_")+8)
	assert.WithinDuration(t, time.Now().UTC(), fields.InvoiceDate, time.Minute)
	assert.Nil(t, fields.DueDate)
	assert.Equal(t, "Unknown Vendor", fields.VendorName)
	assert.Equal(t, "", fields.CustomerName)
	assert.Equal(t, "USD", fields.Currency)
	assert.True(t, fields.TotalAmount.IsZero())
	assert.Nil(t, fields.TaxAmount)

	require.Len(t, fields.LineItems, 1)
	item := fields.LineItems[0]
	assert.Equal(t, "Item 1", item.Description)
	assert.Equal(t, "1", item.Quantity.String())
	assert.True(t, item.UnitPrice.IsZero())
	assert.True(t, item.LineTotal.IsZero())
}

func TestParseExtractionComputesLineTotal(t *testing.T) {
	payload := `{"lineItems": [{"description": "Bolts", "quantity": "4", "unitPrice": "2.25"}]}`

	fields, _, err := ParseExtraction(payload, "bolts.pdf", nil)
	require.NoError(t, err)
	require.Len(t, fields.LineItems, 1)
	assert.Equal(t, "9", fields.LineItems[0].LineTotal.String())
}

func TestParseExtractionStringNumbersWithSeparators(t *testing.T) {
	payload := `{"totalAmount": "1,234.56"}`

	fields, _, err := ParseExtraction(payload, "big.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", fields.TotalAmount.String())
}

func TestParseExtractionRejectsNonJSON(t *testing.T) {
	_, _, err := ParseExtraction("sorry, I could not read this document", "bad.pdf", nil)
	require.Error(t, err)
}

func TestParseExtractionFencedResponse(t *testing.T) {
	payload := "```json\n{\"invoiceNumber\": \"INV-9\", \"vendorName\": \"Fenced Co\"}\n```"

	fields, _, err := ParseExtraction(payload, "fenced.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "INV-9", fields.InvoiceNumber)
	assert.Equal(t, "Fenced Co", fields.VendorName)
}
