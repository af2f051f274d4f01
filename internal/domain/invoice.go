package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billingx/billing-extractor/constants"
)

var ErrInvalidArgument = errors.New("invalid argument")

// ValidationWarning is an advisory finding; it never blocks processing.
type ValidationWarning struct {
	Code    string
	Message string
}

// ValidationError is a blocking finding; the invoice is still persisted for
// audit but its status reflects the failure.
type ValidationError struct {
	Code    string
	Message string
}

// Invoice is the aggregate root assembled from an extraction result. It
// exclusively owns its line items and validation findings.
type Invoice struct {
	ID uuid.UUID

	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       *time.Time

	VendorName   string
	CustomerName string

	TotalAmount Money
	TaxAmount   *Money
	Subtotal    *Money

	OriginalFileName string
	FilePath         string
	FileHash         string

	Status          constants.InvoiceStatus
	ProcessedAt     time.Time
	ProcessingError string

	LineItems []*LineItem
	Warnings  []ValidationWarning
	Errors    []ValidationError
}

// NewInvoice builds a pending invoice. Invoice number and vendor name are
// required; the total's own constructor already rejects negative amounts.
func NewInvoice(invoiceNumber string, invoiceDate time.Time, vendorName, customerName string, totalAmount Money) (*Invoice, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, fmt.Errorf("%w: invoice number is required", ErrInvalidArgument)
	}
	vendorName = strings.TrimSpace(vendorName)
	if vendorName == "" {
		return nil, fmt.Errorf("%w: vendor name is required", ErrInvalidArgument)
	}

	return &Invoice{
		ID:            uuid.New(),
		InvoiceNumber: invoiceNumber,
		InvoiceDate:   invoiceDate,
		VendorName:    vendorName,
		CustomerName:  strings.TrimSpace(customerName),
		TotalAmount:   totalAmount,
		Status:        constants.StatusPending,
		ProcessedAt:   time.Now().UTC(),
	}, nil
}

// Currency is the invoice currency, taken from the total amount.
func (inv *Invoice) Currency() string { return inv.TotalAmount.Currency() }

// AddLineItem appends a line item; its currency must match the invoice's.
func (inv *Invoice) AddLineItem(item *LineItem) error {
	if item == nil {
		return fmt.Errorf("%w: line item is nil", ErrInvalidArgument)
	}
	if item.LineTotal.Currency() != inv.Currency() {
		return fmt.Errorf("%w: line item currency %s must match invoice currency %s",
			ErrCurrencyMismatch, item.LineTotal.Currency(), inv.Currency())
	}
	item.InvoiceID = inv.ID
	inv.LineItems = append(inv.LineItems, item)
	return nil
}

// AddValidationWarning records an advisory finding.
func (inv *Invoice) AddValidationWarning(code, message string) {
	inv.Warnings = append(inv.Warnings, ValidationWarning{Code: code, Message: message})
}

// AddValidationError records a blocking finding. It does NOT flip the status;
// status transitions are driven by the processor from the validation result.
func (inv *Invoice) AddValidationError(code, message string) {
	inv.Errors = append(inv.Errors, ValidationError{Code: code, Message: message})
}

// SetFileMetadata attaches the upload's name, storage path, and content hash.
func (inv *Invoice) SetFileMetadata(originalFileName, filePath, fileHash string) {
	inv.OriginalFileName = originalFileName
	inv.FilePath = filePath
	inv.FileHash = fileHash
}

func (inv *Invoice) SetDueDate(d time.Time) { inv.DueDate = &d }
func (inv *Invoice) SetTaxAmount(m Money)   { inv.TaxAmount = &m }
func (inv *Invoice) SetSubtotal(m Money)    { inv.Subtotal = &m }

// MarkProcessing flags the invoice as in-flight.
func (inv *Invoice) MarkProcessing() {
	inv.Status = constants.StatusProcessing
}

// MarkProcessed is the terminal success transition.
func (inv *Invoice) MarkProcessed() {
	inv.Status = constants.StatusProcessed
	inv.ProcessedAt = time.Now().UTC()
}

// MarkFailed is the terminal failure transition; the row is kept for audit.
func (inv *Invoice) MarkFailed(processingError string) {
	inv.Status = constants.StatusFailed
	inv.ProcessingError = processingError
	inv.ProcessedAt = time.Now().UTC()
}

// MarkDuplicate flags an exact-content duplicate.
func (inv *Invoice) MarkDuplicate() {
	inv.Status = constants.StatusDuplicate
	inv.ProcessedAt = time.Now().UTC()
}

// SumLineItems totals the line items in the invoice currency. Zero-valued
// Money in the invoice currency is returned for an empty list.
func (inv *Invoice) SumLineItems() Money {
	sum := Money{currency: inv.Currency()}
	for _, item := range inv.LineItems {
		if item.LineTotal.Currency() != sum.currency {
			continue
		}
		sum.amount = sum.amount.Add(item.LineTotal.amount)
	}
	return sum
}

// IsDuplicateOf reports whether two invoices look like the same bill:
// same number, same vendor, same calendar day, totals within a cent.
func (inv *Invoice) IsDuplicateOf(other *Invoice) bool {
	if other == nil {
		return false
	}
	if inv.InvoiceNumber != other.InvoiceNumber || inv.VendorName != other.VendorName {
		return false
	}
	if !sameDay(inv.InvoiceDate, other.InvoiceDate) {
		return false
	}
	diff := inv.TotalAmount.Amount().Sub(other.TotalAmount.Amount()).Abs()
	return diff.LessThan(centTolerance)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
