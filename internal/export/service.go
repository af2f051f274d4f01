package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/billingx/billing-extractor/internal/repository"
)

// Service is a tiny façade over the invoice repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.InvoiceRepository
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) for the given vendor
// and date window. Empty vendor and nil bounds export everything.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, vendor string, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC); a from-only window runs to today.
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		toDate = &t
	}

	invoices, err := s.repo.GetAll(ctx, repository.ListQuery{Vendor: vendor, From: fromDate, To: toDate})
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Invoice #",
		"Invoice Date",
		"Vendor",
		"Customer",
		"Total",
		"Currency",
		"Status",
		"Warnings",
		"File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range invoices {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, inv.InvoiceNumber)
		if !inv.InvoiceDate.IsZero() {
			write(2, inv.InvoiceDate.Format("2006-01-02"))
		} else {
			write(2, "")
		}
		write(3, inv.VendorName)
		write(4, inv.CustomerName)
		write(5, inv.TotalAmount.Amount().String())
		write(6, inv.Currency())
		write(7, string(inv.Status))
		write(8, len(inv.Warnings))
		write(9, inv.OriginalFileName)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // invoice number
	_ = f.SetColWidth(sheet, "B", "B", 14) // date
	_ = f.SetColWidth(sheet, "C", "D", 28) // vendor, customer
	_ = f.SetColWidth(sheet, "E", "F", 12) // total, currency
	_ = f.SetColWidth(sheet, "G", "H", 12) // status, warnings
	_ = f.SetColWidth(sheet, "I", "I", 40) // file name

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"vendor", vendor,
		"rows", len(invoices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
