// Package validation implements the deterministic checks an extracted invoice
// must pass before it counts as processed.
package validation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/domain"
)

// amountTolerance absorbs rounding differences between stated and computed
// totals.
var amountTolerance = decimal.NewFromFloat(0.01)

// Result carries the findings of one validation run. Valid is true exactly
// when no blocking errors were found; warnings never block.
type Result struct {
	Valid    bool
	Errors   []domain.ValidationError
	Warnings []domain.ValidationWarning
}

type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate runs every rule and collects all findings; it never stops at the
// first failure.
func (v *Validator) Validate(inv *domain.Invoice) Result {
	var result Result

	addError := func(code, message string) {
		result.Errors = append(result.Errors, domain.ValidationError{Code: code, Message: message})
	}
	addWarning := func(code, message string) {
		result.Warnings = append(result.Warnings, domain.ValidationWarning{Code: code, Message: message})
	}

	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		addError("InvoiceNumber", "Invoice number is required")
	}
	if inv.InvoiceDate.IsZero() {
		addError("InvoiceDate", "Invoice date is required")
	}
	if !inv.TotalAmount.Amount().IsPositive() {
		addError("TotalAmount", "Total amount must be greater than zero")
	}
	if strings.TrimSpace(inv.VendorName) == "" {
		addError("VendorName", "Vendor name is required")
	}
	if strings.TrimSpace(inv.CustomerName) == "" {
		addError("CustomerName", "Customer name is required")
	}

	if len(inv.LineItems) == 0 {
		addError("LineItems", "At least one line item is required")
	} else {
		for i, item := range inv.LineItems {
			if strings.TrimSpace(item.Description) == "" {
				addError(fmt.Sprintf("LineItem[%d].Description", i), "Line item description is required")
			}
			if !item.Quantity.IsPositive() {
				addError(fmt.Sprintf("LineItem[%d].Quantity", i), "Line item quantity must be greater than zero")
			}
			if !item.UnitPrice.Amount().IsPositive() {
				addError(fmt.Sprintf("LineItem[%d].UnitPrice", i), "Line item unit price must be greater than zero")
			}
		}
	}

	for _, description := range duplicateDescriptions(inv.LineItems) {
		addWarning("LineItems", fmt.Sprintf("Multiple line items with description '%s'", description))
	}

	if len(inv.LineItems) > 0 {
		calculated := inv.SumLineItems().Amount()
		stated := inv.TotalAmount.Amount()
		if calculated.Sub(stated).Abs().GreaterThan(amountTolerance) {
			addWarning(constants.CodeAmountMismatch,
				fmt.Sprintf("Sum of line items (%s) does not match invoice total (%s).", calculated, stated))
		}
	}

	result.Valid = len(result.Errors) == 0
	v.logger.Info("validation.done",
		"invoice_number", inv.InvoiceNumber,
		"valid", result.Valid,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)
	return result
}

// duplicateDescriptions returns each description appearing more than once, in
// first-seen order.
func duplicateDescriptions(items []*domain.LineItem) []string {
	counts := make(map[string]int, len(items))
	var order []string
	for _, item := range items {
		if counts[item.Description] == 0 {
			order = append(order, item.Description)
		}
		counts[item.Description]++
	}
	var out []string
	for _, description := range order {
		if counts[description] > 1 {
			out = append(out, description)
		}
	}
	return out
}
