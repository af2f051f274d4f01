package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/billingx/billing-extractor/internal/domain"
	"github.com/billingx/billing-extractor/internal/processing"
)

// Monetary values travel as strings so clients never see float drift.

type lineItemDTO struct {
	LineNumber  int    `json:"lineNumber"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit,omitempty"`
	UnitPrice   string `json:"unitPrice"`
	LineTotal   string `json:"lineTotal"`
}

type findingDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type invoiceDTO struct {
	ID               string        `json:"id"`
	InvoiceNumber    string        `json:"invoiceNumber"`
	InvoiceDate      time.Time     `json:"invoiceDate"`
	DueDate          *time.Time    `json:"dueDate,omitempty"`
	VendorName       string        `json:"vendorName"`
	CustomerName     string        `json:"customerName"`
	Currency         string        `json:"currency"`
	TotalAmount      string        `json:"totalAmount"`
	TaxAmount        *string       `json:"taxAmount,omitempty"`
	Subtotal         *string       `json:"subtotal,omitempty"`
	Status           string        `json:"status"`
	ProcessedAt      time.Time     `json:"processedAt"`
	ProcessingError  string        `json:"processingError,omitempty"`
	OriginalFileName string        `json:"originalFileName,omitempty"`
	LineItems        []lineItemDTO `json:"lineItems"`
	Warnings         []findingDTO  `json:"validationWarnings"`
	Errors           []findingDTO  `json:"validationErrors"`
}

type fileResultDTO struct {
	FileName  string       `json:"fileName"`
	InvoiceID string       `json:"invoiceId,omitempty"`
	Status    string       `json:"status"`
	Warnings  []findingDTO `json:"validationWarnings,omitempty"`
	Errors    []findingDTO `json:"validationErrors,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type batchResultDTO struct {
	Success         bool            `json:"success"`
	TotalProcessed  int             `json:"totalProcessed"`
	TotalFailed     int             `json:"totalFailed"`
	TotalDuplicates int             `json:"totalDuplicates"`
	Invoices        []fileResultDTO `json:"invoices"`
	Errors          []string        `json:"errors"`
}

func toFindingDTOs(warnings []domain.ValidationWarning, errs []domain.ValidationError) ([]findingDTO, []findingDTO) {
	w := make([]findingDTO, 0, len(warnings))
	for _, f := range warnings {
		w = append(w, findingDTO{Code: f.Code, Message: f.Message})
	}
	e := make([]findingDTO, 0, len(errs))
	for _, f := range errs {
		e = append(e, findingDTO{Code: f.Code, Message: f.Message})
	}
	return w, e
}

func toInvoiceDTO(inv *domain.Invoice) invoiceDTO {
	items := make([]lineItemDTO, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, lineItemDTO{
			LineNumber:  li.LineNumber,
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			Unit:        li.Unit,
			UnitPrice:   li.UnitPrice.Amount().String(),
			LineTotal:   li.LineTotal.Amount().String(),
		})
	}
	warnings, errs := toFindingDTOs(inv.Warnings, inv.Errors)

	dto := invoiceDTO{
		ID:               inv.ID.String(),
		InvoiceNumber:    inv.InvoiceNumber,
		InvoiceDate:      inv.InvoiceDate,
		DueDate:          inv.DueDate,
		VendorName:       inv.VendorName,
		CustomerName:     inv.CustomerName,
		Currency:         inv.Currency(),
		TotalAmount:      inv.TotalAmount.Amount().String(),
		Status:           string(inv.Status),
		ProcessedAt:      inv.ProcessedAt,
		ProcessingError:  inv.ProcessingError,
		OriginalFileName: inv.OriginalFileName,
		LineItems:        items,
		Warnings:         warnings,
		Errors:           errs,
	}
	if inv.TaxAmount != nil {
		s := inv.TaxAmount.Amount().String()
		dto.TaxAmount = &s
	}
	if inv.Subtotal != nil {
		s := inv.Subtotal.Amount().String()
		dto.Subtotal = &s
	}
	return dto
}

func toBatchResultDTO(result processing.BatchResult) batchResultDTO {
	invoices := make([]fileResultDTO, 0, len(result.Invoices))
	for _, res := range result.Invoices {
		warnings, errs := toFindingDTOs(res.Warnings, res.Errors)
		dto := fileResultDTO{
			FileName: res.FileName,
			Status:   string(res.Status),
			Warnings: warnings,
			Errors:   errs,
			Error:    res.Error,
		}
		if res.InvoiceID != uuid.Nil {
			dto.InvoiceID = res.InvoiceID.String()
		}
		invoices = append(invoices, dto)
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return batchResultDTO{
		Success:         result.Success,
		TotalProcessed:  result.TotalProcessed,
		TotalFailed:     result.TotalFailed,
		TotalDuplicates: result.TotalDuplicates,
		Invoices:        invoices,
		Errors:          errs,
	}
}
