package constants

// InvoiceStatus is the canonical processing status for rows in invoices.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    InvoiceStatus = "PENDING"    // created, not yet through the pipeline
	StatusProcessing InvoiceStatus = "PROCESSING" // extraction in progress
	StatusProcessed  InvoiceStatus = "PROCESSED"  // extracted, validated, persisted
	StatusFailed     InvoiceStatus = "FAILED"     // terminal failure (row kept for audit)
	StatusDuplicate  InvoiceStatus = "DUPLICATE"  // exact-content duplicate
)

// Finding severities as stored in invoice_findings.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Cross-field validation codes. Field-level error codes are the field names
// themselves ("InvoiceNumber", "LineItem[2].Quantity", ...).
const (
	CodeAmountMismatch    = "AMOUNT_MISMATCH"
	CodeDuplicatePossible = "DUPLICATE_POSSIBLE"
	CodeDuplicate         = "DUPLICATE"
	CodeExtractionError   = "EXTRACTION_ERROR"
)
