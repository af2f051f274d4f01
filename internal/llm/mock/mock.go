// Package mock is an offline Extractor that fabricates plausible grocery
// invoices. It backs local development and tests where no provider key is
// available.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billingx/billing-extractor/internal/llm"
)

var vendors = []string{
	"Fresh Foods Inc.",
	"Quality Produce Co.",
	"Global Suppliers Ltd.",
	"Local Farm Distributors",
}

var catalog = []struct {
	description string
	unit        string
}{
	{"Apples", "kg"},
	{"Oranges", "kg"},
	{"Bananas", "bunch"},
	{"Tomatoes", "kg"},
	{"Potatoes", "kg"},
	{"Onions", "kg"},
	{"Carrots", "kg"},
	{"Lettuce", "head"},
	{"Milk", "liter"},
	{"Eggs", "dozen"},
}

// Extractor fabricates invoice data seeded from the file content, so the same
// bytes always yield the same invoice.
type Extractor struct {
	logger *slog.Logger
	calls  atomic.Int64
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Calls reports how many extractions ran. Tests use it to assert the
// duplicate short-circuit never reached the provider.
func (e *Extractor) Calls() int64 {
	return e.calls.Load()
}

func (e *Extractor) ExtractInvoice(ctx context.Context, data []byte, fileName string) (llm.InvoiceFields, []byte, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return llm.InvoiceFields{}, nil, err
	}
	e.logger.Info("llm.mock.extract", "file", fileName, "size_bytes", len(data))

	sum := sha256.Sum256(data)
	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))

	now := time.Now().UTC()
	invoiceDate := now.AddDate(0, 0, -(rng.Intn(29) + 1))
	dueDate := now.AddDate(0, 0, rng.Intn(30)+15)

	fields := llm.InvoiceFields{
		InvoiceNumber: fmt.Sprintf("INV-%s-%04d", now.Format("20060102"), rng.Intn(9000)+1000),
		InvoiceDate:   invoiceDate,
		DueDate:       &dueDate,
		VendorName:    vendors[rng.Intn(len(vendors))],
		CustomerName:  "Your Grocery Store",
		Currency:      "USD",
	}

	total := decimal.Zero
	count := rng.Intn(5) + 3
	for i := 0; i < count; i++ {
		entry := catalog[rng.Intn(len(catalog))]
		quantity := decimal.NewFromInt(int64(rng.Intn(50) + 1))
		unitPrice := decimal.NewFromFloat(rng.Float64()*10 + 1).Round(2)
		lineTotal := quantity.Mul(unitPrice)
		total = total.Add(lineTotal)

		fields.LineItems = append(fields.LineItems, llm.LineItemFields{
			LineNumber:  i + 1,
			Description: entry.description,
			Quantity:    quantity,
			Unit:        entry.unit,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
	}

	tax := total.Mul(decimal.NewFromFloat(0.1)).Round(2)
	subtotal := total.Sub(tax)
	fields.TotalAmount = total
	fields.TaxAmount = &tax
	fields.Subtotal = &subtotal

	raw, err := json.Marshal(fields)
	if err != nil {
		return llm.InvoiceFields{}, nil, fmt.Errorf("marshal mock payload: %w", err)
	}
	return fields, raw, nil
}
