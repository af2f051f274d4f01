package llm

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LineItemFields is one extracted billing line, 1-based LineNumber assigned
// by position in the provider's response array.
type LineItemFields struct {
	LineNumber  int
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// InvoiceFields is the normalized shape we want from the LLM, after fence
// stripping, schema validation, and per-field defaulting.
type InvoiceFields struct {
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       *time.Time
	VendorName    string
	CustomerName  string
	Currency      string // ISO 4217, uppercased
	TotalAmount   decimal.Decimal
	TaxAmount     *decimal.Decimal
	Subtotal      *decimal.Decimal
	LineItems     []LineItemFields
}

// Extractor is the contract the pipeline depends on: file bytes in,
// structured fields out. The raw JSON payload is returned for auditing.
type Extractor interface {
	ExtractInvoice(ctx context.Context, data []byte, fileName string) (InvoiceFields, []byte, error)
}

// File is one batch entry handed to ExtractBatch.
type File struct {
	Data     []byte
	FileName string
}

// Extraction is one batch outcome. Err is set when extraction failed
// terminally for that file; the batch itself never fails.
type Extraction struct {
	FileName string
	Fields   InvoiceFields
	Raw      []byte
	Err      error
}

// ExtractBatch maps files through the extractor. One file's failure becomes a
// terminal failed entry, never an error for the whole batch.
func ExtractBatch(ctx context.Context, ex Extractor, files []File) []Extraction {
	out := make([]Extraction, 0, len(files))
	for _, f := range files {
		fields, raw, err := ex.ExtractInvoice(ctx, f.Data, f.FileName)
		out = append(out, Extraction{FileName: f.FileName, Fields: fields, Raw: raw, Err: err})
	}
	return out
}
