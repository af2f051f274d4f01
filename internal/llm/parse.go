package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CleanResponse strips markdown code fences some models wrap around their
// JSON payload.
func CleanResponse(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// rawExtraction mirrors the provider JSON with interface{} numerics so that
// "100.50", 100.50, and null all decode.
type rawExtraction struct {
	InvoiceNumber *string       `json:"invoiceNumber"`
	InvoiceDate   *string       `json:"invoiceDate"`
	DueDate       *string       `json:"dueDate"`
	VendorName    *string       `json:"vendorName"`
	CustomerName  *string       `json:"customerName"`
	Currency      *string       `json:"currency"`
	TotalAmount   any           `json:"totalAmount"`
	TaxAmount     any           `json:"taxAmount"`
	Subtotal      any           `json:"subtotal"`
	LineItems     []rawLineItem `json:"lineItems"`
}

type rawLineItem struct {
	Description *string `json:"description"`
	Quantity    any     `json:"quantity"`
	Unit        *string `json:"unit"`
	UnitPrice   any     `json:"unitPrice"`
	LineTotal   any     `json:"lineTotal"`
}

// ParseExtraction turns a provider's textual response into InvoiceFields:
// strip fences, schema-check, decode tolerantly, then apply the defaults an
// absent field gets. The cleaned JSON is returned for auditing.
func ParseExtraction(response string, fileName string, logger *slog.Logger) (InvoiceFields, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cleaned := []byte(CleanResponse(response))
	if err := ValidateJSONAgainstSchema(BuildInvoiceJSONSchema(), cleaned); err != nil {
		logger.Error("llm.parse.schema_validation_failed", "file", fileName, "error", err)
		return InvoiceFields{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var raw rawExtraction
	if err := json.Unmarshal(cleaned, &raw); err != nil {
		logger.Error("llm.parse.decode_error", "file", fileName, "error", err)
		return InvoiceFields{}, cleaned, fmt.Errorf("decode extraction: %w", err)
	}

	fields := InvoiceFields{
		InvoiceNumber: strOr(raw.InvoiceNumber, "UNKNOWN_"+randomHex8()),
		InvoiceDate:   parseDateOr(raw.InvoiceDate, time.Now().UTC()),
		DueDate:       parseDatePtr(raw.DueDate),
		VendorName:    strOr(raw.VendorName, "Unknown Vendor"),
		CustomerName:  strOr(raw.CustomerName, ""),
		Currency:      strings.ToUpper(strOr(raw.Currency, "USD")),
		TotalAmount:   decimalOr(raw.TotalAmount, decimal.Zero),
		TaxAmount:     decimalPtr(raw.TaxAmount),
		Subtotal:      decimalPtr(raw.Subtotal),
	}

	for i, item := range raw.LineItems {
		quantity := decimalOr(item.Quantity, decimal.NewFromInt(1))
		unitPrice := decimalOr(item.UnitPrice, decimal.Zero)
		lineTotal := decimalOr(item.LineTotal, quantity.Mul(unitPrice))

		fields.LineItems = append(fields.LineItems, LineItemFields{
			LineNumber:  i + 1,
			Description: strOr(item.Description, fmt.Sprintf("Item %d", i+1)),
			Quantity:    quantity,
			Unit:        strOr(item.Unit, ""),
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
	}

	logger.Info("llm.parse.ok",
		"file", fileName,
		"invoice_number", fields.InvoiceNumber,
		"vendor", fields.VendorName,
		"total", fields.TotalAmount,
		"currency", fields.Currency,
		"line_items", len(fields.LineItems),
	)
	return fields, cleaned, nil
}

func randomHex8() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func strOr(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return strings.TrimSpace(*p)
}

// dateLayouts are tried in order for invoiceDate/dueDate values.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02.01.2006",
}

func parseDatePtr(p *string) *time.Time {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	s := strings.TrimSpace(*p)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseDateOr(p *string, def time.Time) time.Time {
	if t := parseDatePtr(p); t != nil {
		return *t
	}
	return def
}

// decimalOr coerces a JSON value (number, numeric string, or nil) into a
// decimal, falling back to def.
func decimalOr(v any, def decimal.Decimal) decimal.Decimal {
	if d := decimalPtr(v); d != nil {
		return *d
	}
	return def
}

func decimalPtr(v any) *decimal.Decimal {
	switch t := v.(type) {
	case float64:
		d := decimal.NewFromFloat(t)
		return &d
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if s == "" {
			return nil
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return &d
		}
		return nil
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return &d
		}
		return nil
	default:
		return nil
	}
}
