package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/domain"
)

// timeLayout keeps a fixed fraction width so lexicographic order on the
// stored text matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000000"

// ListQuery narrows and pages GetAll. Page is 1-based; a non-positive Page or
// PageSize disables paging and returns everything.
type ListQuery struct {
	Page     int
	PageSize int
	Vendor   string
	From     *time.Time
	To       *time.Time
}

// InvoiceRepository is the persistence boundary for invoice aggregates.
type InvoiceRepository interface {
	Add(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetByFileHash(ctx context.Context, hash string) (*domain.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*domain.Invoice, error)
	FindSimilar(ctx context.Context, number, vendor string, date time.Time) ([]*domain.Invoice, error)
	ExistsByNumberVendorDate(ctx context.Context, number, vendor string, date time.Time) (bool, error)
	GetAll(ctx context.Context, q ListQuery) ([]*domain.Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type invoiceRepository struct {
	client *Client
	logger *slog.Logger
}

func NewInvoiceRepository(client *Client, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{client: client, logger: logger}
}

// rebind converts ? placeholders to the $N style pgx requires. SQLite takes
// ? natively.
func (r *invoiceRepository) rebind(query string) string {
	if r.client.Driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func (r *invoiceRepository) Add(ctx context.Context, inv *domain.Invoice) error {
	tx, err := r.client.DB.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin transaction", err)
	}
	defer tx.Rollback()

	var dueDate, taxAmount, subtotal sql.NullString
	if inv.DueDate != nil {
		dueDate = sql.NullString{String: formatTime(*inv.DueDate), Valid: true}
	}
	if inv.TaxAmount != nil {
		taxAmount = sql.NullString{String: inv.TaxAmount.Amount().String(), Valid: true}
	}
	if inv.Subtotal != nil {
		subtotal = sql.NullString{String: inv.Subtotal.Amount().String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, r.rebind(`
		INSERT INTO invoices (
			id, invoice_number, invoice_date, due_date, vendor_name, customer_name,
			currency, total_amount, tax_amount, subtotal,
			original_file_name, file_path, file_hash,
			status, processing_error, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		inv.ID.String(), inv.InvoiceNumber, formatTime(inv.InvoiceDate), dueDate,
		inv.VendorName, inv.CustomerName, inv.Currency(),
		inv.TotalAmount.Amount().String(), taxAmount, subtotal,
		inv.OriginalFileName, inv.FilePath, inv.FileHash,
		string(inv.Status), inv.ProcessingError, formatTime(inv.ProcessedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return common.NewAppError(constants.CodeDuplicate, "file hash already stored", common.ErrDuplicateContent)
		}
		return common.NewAppError("DB_ERROR", "insert invoice", err)
	}

	for _, item := range inv.LineItems {
		_, err = tx.ExecContext(ctx, r.rebind(`
			INSERT INTO line_items (
				id, invoice_id, line_number, description, quantity, unit,
				unit_price, line_total, currency
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			item.ID.String(), inv.ID.String(), item.LineNumber, item.Description,
			item.Quantity.String(), item.Unit,
			item.UnitPrice.Amount().String(), item.LineTotal.Amount().String(),
			item.LineTotal.Currency(),
		)
		if err != nil {
			return common.NewAppError("DB_ERROR", "insert line item", err)
		}
	}

	insertFinding := func(severity, code, message string, position int) error {
		_, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO invoice_findings (id, invoice_id, severity, code, message, position)
			VALUES (?, ?, ?, ?, ?, ?)`),
			uuid.New().String(), inv.ID.String(), severity, code, message, position)
		return err
	}
	for i, w := range inv.Warnings {
		if err := insertFinding(constants.SeverityWarning, w.Code, w.Message, i); err != nil {
			return common.NewAppError("DB_ERROR", "insert warning", err)
		}
	}
	for i, e := range inv.Errors {
		if err := insertFinding(constants.SeverityError, e.Code, e.Message, i); err != nil {
			return common.NewAppError("DB_ERROR", "insert error finding", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit invoice", err)
	}
	r.logger.Info("repo.invoice.add",
		"id", inv.ID, "invoice_number", inv.InvoiceNumber, "status", inv.Status)
	return nil
}

const invoiceColumns = `
	id, invoice_number, invoice_date, due_date, vendor_name, customer_name,
	currency, total_amount, tax_amount, subtotal,
	original_file_name, file_path, file_hash,
	status, processing_error, processed_at`

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := r.queryOne(ctx, "WHERE id = ?", id.String())
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) GetByFileHash(ctx context.Context, hash string) (*domain.Invoice, error) {
	return r.queryOne(ctx, "WHERE file_hash = ?", hash)
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	inv, err := r.queryOne(ctx, "WHERE invoice_number = ? ORDER BY processed_at DESC LIMIT 1", number)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// FindSimilar returns invoice headers sharing number, vendor, and calendar
// day. Line items are not loaded; duplicate checks only need the header.
func (r *invoiceRepository) FindSimilar(ctx context.Context, number, vendor string, date time.Time) ([]*domain.Invoice, error) {
	dayStart := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := r.client.DB.QueryContext(ctx, r.rebind(
		"SELECT"+invoiceColumns+` FROM invoices
		WHERE invoice_number = ? AND vendor_name = ?
		  AND invoice_date >= ? AND invoice_date < ?
		ORDER BY processed_at DESC`),
		number, vendor, formatTime(dayStart), formatTime(dayEnd))
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query similar invoices", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// ExistsByNumberVendorDate is the presence-only variant of FindSimilar for
// callers that do not need the matching rows.
func (r *invoiceRepository) ExistsByNumberVendorDate(ctx context.Context, number, vendor string, date time.Time) (bool, error) {
	dayStart := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var one int
	err := r.client.DB.QueryRowContext(ctx, r.rebind(
		`SELECT 1 FROM invoices
		WHERE invoice_number = ? AND vendor_name = ?
		  AND invoice_date >= ? AND invoice_date < ?
		LIMIT 1`),
		number, vendor, formatTime(dayStart), formatTime(dayEnd)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, common.NewAppError("DB_ERROR", "check for similar invoices", err)
	}
	return true, nil
}

func (r *invoiceRepository) GetAll(ctx context.Context, q ListQuery) ([]*domain.Invoice, error) {
	var (
		where []string
		args  []any
	)
	if q.Vendor != "" {
		where = append(where, "vendor_name = ?")
		args = append(args, q.Vendor)
	}
	if q.From != nil {
		where = append(where, "invoice_date >= ?")
		args = append(args, formatTime(*q.From))
	}
	if q.To != nil {
		where = append(where, "invoice_date < ?")
		args = append(args, formatTime(*q.To))
	}

	query := "SELECT" + invoiceColumns + " FROM invoices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY processed_at DESC"
	if q.Page > 0 && q.PageSize > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	}

	rows, err := r.client.DB.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query invoices", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if err := r.loadChildren(ctx, inv); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.client.DB.ExecContext(ctx,
		r.rebind("DELETE FROM invoices WHERE id = ?"), id.String())
	if err != nil {
		return false, common.NewAppError("DB_ERROR", "delete invoice", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, common.NewAppError("DB_ERROR", "delete invoice", err)
	}
	if affected > 0 {
		r.logger.Info("repo.invoice.delete", "id", id)
	}
	return affected > 0, nil
}

func (r *invoiceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.client.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoices").Scan(&n)
	if err != nil {
		return 0, common.NewAppError("DB_ERROR", "count invoices", err)
	}
	return n, nil
}

func (r *invoiceRepository) queryOne(ctx context.Context, clause string, args ...any) (*domain.Invoice, error) {
	rows, err := r.client.DB.QueryContext(ctx,
		r.rebind("SELECT"+invoiceColumns+" FROM invoices "+clause), args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query invoice", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, common.ErrNotFound
	}
	return invoices[0], nil
}

func (r *invoiceRepository) loadChildren(ctx context.Context, inv *domain.Invoice) error {
	rows, err := r.client.DB.QueryContext(ctx, r.rebind(`
		SELECT id, line_number, description, quantity, unit, unit_price, line_total, currency
		FROM line_items WHERE invoice_id = ? ORDER BY line_number`), inv.ID.String())
	if err != nil {
		return common.NewAppError("DB_ERROR", "query line items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idStr, description, quantityStr, unit string
			unitPriceStr, lineTotalStr, currency  string
			lineNumber                            int
		)
		if err := rows.Scan(&idStr, &lineNumber, &description, &quantityStr,
			&unit, &unitPriceStr, &lineTotalStr, &currency); err != nil {
			return common.NewAppError("DB_ERROR", "scan line item", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return common.NewAppError("DB_ERROR", "parse line item id", err)
		}
		quantity, err := decimal.NewFromString(quantityStr)
		if err != nil {
			return common.NewAppError("DB_ERROR", "parse quantity", err)
		}
		unitPrice, err := moneyFromStored(unitPriceStr, currency)
		if err != nil {
			return err
		}
		lineTotal, err := moneyFromStored(lineTotalStr, currency)
		if err != nil {
			return err
		}

		inv.LineItems = append(inv.LineItems, &domain.LineItem{
			ID:          id,
			InvoiceID:   inv.ID,
			LineNumber:  lineNumber,
			Description: description,
			Quantity:    quantity,
			Unit:        unit,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
	}
	if err := rows.Err(); err != nil {
		return common.NewAppError("DB_ERROR", "iterate line items", err)
	}

	frows, err := r.client.DB.QueryContext(ctx, r.rebind(`
		SELECT severity, code, message FROM invoice_findings
		WHERE invoice_id = ? ORDER BY severity, position`), inv.ID.String())
	if err != nil {
		return common.NewAppError("DB_ERROR", "query findings", err)
	}
	defer frows.Close()

	for frows.Next() {
		var severity, code, message string
		if err := frows.Scan(&severity, &code, &message); err != nil {
			return common.NewAppError("DB_ERROR", "scan finding", err)
		}
		if severity == constants.SeverityError {
			inv.AddValidationError(code, message)
		} else {
			inv.AddValidationWarning(code, message)
		}
	}
	return frows.Err()
}

func scanInvoices(rows *sql.Rows) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for rows.Next() {
		var (
			idStr, number, dateStr, vendor, customer string
			currency, totalStr, status, procErr      string
			originalName, filePath, fileHash         string
			processedAtStr                           string
			dueDate, taxAmount, subtotal             sql.NullString
		)
		err := rows.Scan(&idStr, &number, &dateStr, &dueDate, &vendor, &customer,
			&currency, &totalStr, &taxAmount, &subtotal,
			&originalName, &filePath, &fileHash,
			&status, &procErr, &processedAtStr)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan invoice", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "parse invoice id", err)
		}
		invoiceDate, err := parseStoredTime(dateStr)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "parse invoice date", err)
		}
		processedAt, err := parseStoredTime(processedAtStr)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "parse processed_at", err)
		}
		total, err := moneyFromStored(totalStr, currency)
		if err != nil {
			return nil, err
		}

		inv := &domain.Invoice{
			ID:               id,
			InvoiceNumber:    number,
			InvoiceDate:      invoiceDate,
			VendorName:       vendor,
			CustomerName:     customer,
			TotalAmount:      total,
			OriginalFileName: originalName,
			FilePath:         filePath,
			FileHash:         fileHash,
			Status:           constants.InvoiceStatus(status),
			ProcessingError:  procErr,
			ProcessedAt:      processedAt,
		}
		if dueDate.Valid {
			d, err := parseStoredTime(dueDate.String)
			if err != nil {
				return nil, common.NewAppError("DB_ERROR", "parse due date", err)
			}
			inv.SetDueDate(d)
		}
		if taxAmount.Valid {
			m, err := moneyFromStored(taxAmount.String, currency)
			if err != nil {
				return nil, err
			}
			inv.SetTaxAmount(m)
		}
		if subtotal.Valid {
			m, err := moneyFromStored(subtotal.String, currency)
			if err != nil {
				return nil, err
			}
			inv.SetSubtotal(m)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_ERROR", "iterate invoices", err)
	}
	return out, nil
}

func moneyFromStored(amount, currency string) (domain.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Money{}, common.NewAppError("DB_ERROR", "parse stored amount", err)
	}
	m, err := domain.NewMoney(d, currency)
	if err != nil {
		return domain.Money{}, common.NewAppError("DB_ERROR", "rebuild stored amount", err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
