package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidLineItem = errors.New("invalid line item")

// LineItem is one billed entry within an invoice. It is immutable once
// created; the line total is computed at construction and shares the unit
// price's currency.
type LineItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	LineNumber  int
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   Money
	LineTotal   Money
}

// NewLineItem builds a line item with lineTotal = quantity * unitPrice.
func NewLineItem(lineNumber int, description string, quantity decimal.Decimal, unit string, unitPrice Money, invoiceID uuid.UUID) (*LineItem, error) {
	if lineNumber < 1 {
		return nil, fmt.Errorf("%w: line number must be >= 1", ErrInvalidLineItem)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidLineItem)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidLineItem)
	}

	total, err := unitPrice.Mul(quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLineItem, err)
	}

	return &LineItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		LineNumber:  lineNumber,
		Description: description,
		Quantity:    quantity,
		Unit:        strings.TrimSpace(unit),
		UnitPrice:   unitPrice,
		LineTotal:   total,
	}, nil
}
