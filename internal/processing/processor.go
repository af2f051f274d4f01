// Package processing orchestrates the pipeline: hash, duplicate check,
// storage, extraction, validation, persistence.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/domain"
	"github.com/billingx/billing-extractor/internal/llm"
	"github.com/billingx/billing-extractor/internal/repository"
	"github.com/billingx/billing-extractor/internal/storage"
	"github.com/billingx/billing-extractor/internal/validation"
)

// Options tune pipeline behavior per batch.
type Options struct {
	EnableValidation         bool
	EnableDuplicateDetection bool
}

// BatchFile is one upload in a batch request.
type BatchFile struct {
	FileName string
	Data     []byte
}

// FileResult is the per-file outcome inside a BatchResult.
type FileResult struct {
	FileName  string
	InvoiceID uuid.UUID
	Status    constants.InvoiceStatus
	Warnings  []domain.ValidationWarning
	Errors    []domain.ValidationError
	Error     string
}

// BatchResult aggregates a whole upload. Success means at least one file made
// it through.
type BatchResult struct {
	Success         bool
	TotalProcessed  int
	TotalFailed     int
	TotalDuplicates int
	Invoices        []FileResult
	Errors          []string
}

type Processor struct {
	extractor     llm.Extractor
	repo          repository.InvoiceRepository
	store         storage.Store
	validator     *validation.Validator
	logger        *slog.Logger
	llmTimeout    time.Duration
	maxConcurrent int
}

func NewProcessor(
	extractor llm.Extractor,
	repo repository.InvoiceRepository,
	store storage.Store,
	cfg *common.Config,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrent := cfg.Pipeline.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Processor{
		extractor:     extractor,
		repo:          repo,
		store:         store,
		validator:     validation.NewValidator(logger),
		logger:        logger,
		llmTimeout:    cfg.LLM.Timeout,
		maxConcurrent: maxConcurrent,
	}
}

// ProcessFile runs the full pipeline for one document and returns the id of
// the persisted invoice. Content already on record short-circuits with
// ErrDuplicateContent before the extractor is ever invoked.
func (p *Processor) ProcessFile(ctx context.Context, data []byte, fileName string, opts Options) (uuid.UUID, error) {
	p.logger.Info("process.file.start", "file", fileName, "size_bytes", len(data))

	fileHash := storage.HashBytes(data)

	if opts.EnableDuplicateDetection {
		existing, err := p.repo.GetByFileHash(ctx, fileHash)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return uuid.Nil, err
		}
		if existing != nil {
			p.logger.Warn("process.file.duplicate_content", "file", fileName, "hash", fileHash)
			return existing.ID, common.NewAppError(constants.CodeDuplicate,
				fmt.Sprintf("invoice with the same content already exists: %s", existing.InvoiceNumber),
				common.ErrDuplicateContent)
		}
	}

	filePath, err := p.store.Save(data, fileName)
	if err != nil {
		return uuid.Nil, err
	}

	extractCtx := ctx
	if p.llmTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, p.llmTimeout)
		defer cancel()
	}

	fields, _, err := p.extractor.ExtractInvoice(extractCtx, data, fileName)
	if err != nil {
		p.logger.Error("process.file.extraction_failed", "file", fileName, "error", err)
		if auditErr := p.persistFailedExtraction(ctx, fileName, filePath, fileHash, err); auditErr != nil {
			p.logger.Error("process.file.audit_persist_failed", "file", fileName, "error", auditErr)
		}
		return uuid.Nil, common.NewAppError(constants.CodeExtractionError,
			fmt.Sprintf("extraction failed for %s", fileName), err)
	}

	inv, err := p.assembleInvoice(fields)
	if err != nil {
		return uuid.Nil, err
	}
	inv.SetFileMetadata(fileName, filePath, fileHash)

	if opts.EnableValidation {
		result := p.validator.Validate(inv)
		for _, e := range result.Errors {
			inv.AddValidationError(e.Code, e.Message)
		}
		for _, w := range result.Warnings {
			inv.AddValidationWarning(w.Code, w.Message)
		}
		if result.Valid {
			inv.MarkProcessed()
		} else {
			inv.MarkFailed("validation failed")
		}
	} else {
		inv.MarkProcessed()
	}

	if opts.EnableDuplicateDetection {
		similar, err := p.repo.FindSimilar(ctx, inv.InvoiceNumber, inv.VendorName, inv.InvoiceDate)
		if err != nil {
			return uuid.Nil, err
		}
		if len(similar) > 0 {
			matches := make([]string, 0, len(similar))
			for _, s := range similar {
				matches = append(matches, s.ID.String())
			}
			inv.AddValidationWarning(constants.CodeDuplicatePossible,
				fmt.Sprintf("Similar invoice(s) with number %s already exist for vendor %s",
					inv.InvoiceNumber, inv.VendorName))
			p.logger.Warn("process.file.near_duplicate",
				"file", fileName, "invoice_number", inv.InvoiceNumber,
				"vendor", inv.VendorName, "matches", matches)
		}
	}

	if err := p.repo.Add(ctx, inv); err != nil {
		return uuid.Nil, err
	}

	p.logger.Info("process.file.done",
		"file", fileName, "invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber, "status", inv.Status)
	return inv.ID, nil
}

// assembleInvoice builds the aggregate from extracted fields. All monetary
// values share the extracted currency.
func (p *Processor) assembleInvoice(fields llm.InvoiceFields) (*domain.Invoice, error) {
	total, err := domain.NewMoney(fields.TotalAmount, fields.Currency)
	if err != nil {
		return nil, common.NewAppError(constants.CodeExtractionError, "invalid total amount", err)
	}

	inv, err := domain.NewInvoice(fields.InvoiceNumber, fields.InvoiceDate,
		fields.VendorName, fields.CustomerName, total)
	if err != nil {
		return nil, common.NewAppError(constants.CodeExtractionError, "invalid invoice fields", err)
	}

	if fields.DueDate != nil {
		inv.SetDueDate(*fields.DueDate)
	}
	if fields.TaxAmount != nil {
		if tax, err := domain.NewMoney(*fields.TaxAmount, fields.Currency); err == nil {
			inv.SetTaxAmount(tax)
		}
	}
	if fields.Subtotal != nil {
		if subtotal, err := domain.NewMoney(*fields.Subtotal, fields.Currency); err == nil {
			inv.SetSubtotal(subtotal)
		}
	}

	for _, li := range fields.LineItems {
		unitPrice, err := domain.NewMoney(li.UnitPrice, fields.Currency)
		if err != nil {
			p.logger.Warn("process.assemble.line_item_skipped", "line", li.LineNumber, "error", err)
			continue
		}
		item, err := domain.NewLineItem(li.LineNumber, li.Description, li.Quantity, li.Unit, unitPrice, inv.ID)
		if err != nil {
			p.logger.Warn("process.assemble.line_item_skipped", "line", li.LineNumber, "error", err)
			continue
		}
		if err := inv.AddLineItem(item); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// persistFailedExtraction writes an audit row so failed documents remain
// visible and queryable.
func (p *Processor) persistFailedExtraction(ctx context.Context, fileName, filePath, fileHash string, cause error) error {
	zero, err := domain.NewMoneyFromFloat(0, "USD")
	if err != nil {
		return err
	}
	inv, err := domain.NewInvoice("EXTRACTION_FAILED", time.Now().UTC(), "Unknown", "Unknown", zero)
	if err != nil {
		return err
	}
	inv.SetFileMetadata(fileName, filePath, fileHash)
	inv.MarkFailed(cause.Error())
	return p.repo.Add(ctx, inv)
}

// ProcessBatch validates the intake, then fans the files out to at most
// maxConcurrent workers. One file's failure or panic never touches the rest.
func (p *Processor) ProcessBatch(ctx context.Context, files []BatchFile, opts Options) (BatchResult, error) {
	var result BatchResult

	if len(files) == 0 {
		return result, common.NewAppError("INVALID_REQUEST", "no files provided", common.ErrInvalidInput)
	}
	if len(files) > constants.MaxFilesPerBatch {
		return result, common.NewAppError("INVALID_REQUEST",
			fmt.Sprintf("too many files: %d exceeds the limit of %d", len(files), constants.MaxFilesPerBatch),
			common.ErrInvalidInput)
	}

	valid := make([]BatchFile, 0, len(files))
	for _, f := range files {
		if !constants.IsAllowedFile(f.FileName) {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid file type: %s", f.FileName))
			result.TotalFailed++
			continue
		}
		if len(f.Data) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("empty file: %s", f.FileName))
			result.TotalFailed++
			continue
		}
		valid = append(valid, f)
	}
	if len(valid) == 0 {
		return result, common.NewAppError("INVALID_REQUEST", "no valid files to process", common.ErrInvalidInput)
	}

	type indexed struct {
		res FileResult
		dup bool
	}
	outcomes := make([]indexed, len(valid))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.maxConcurrent)

	for i, f := range valid {
		// Cancellation stops files that have not started yet.
		if err := ctx.Err(); err != nil {
			outcomes[i] = indexed{res: FileResult{
				FileName: f.FileName,
				Status:   constants.StatusFailed,
				Error:    fmt.Sprintf("canceled before processing: %v", err),
			}}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, f BatchFile) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("process.batch.panic", "file", f.FileName, "panic", r)
					outcomes[i] = indexed{res: FileResult{
						FileName: f.FileName,
						Status:   constants.StatusFailed,
						Error:    fmt.Sprintf("internal error processing %s", f.FileName),
					}}
				}
			}()

			id, err := p.ProcessFile(ctx, f.Data, f.FileName, opts)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateContent) {
					outcomes[i] = indexed{
						res: FileResult{
							FileName:  f.FileName,
							InvoiceID: id,
							Status:    constants.StatusDuplicate,
							Error:     err.Error(),
						},
						dup: true,
					}
					return
				}
				outcomes[i] = indexed{res: FileResult{
					FileName: f.FileName,
					Status:   constants.StatusFailed,
					Error:    err.Error(),
				}}
				return
			}

			res := FileResult{FileName: f.FileName, InvoiceID: id, Status: constants.StatusProcessed}
			if inv, getErr := p.repo.GetByID(ctx, id); getErr == nil {
				res.Status = inv.Status
				res.Warnings = inv.Warnings
				res.Errors = inv.Errors
			}
			outcomes[i] = indexed{res: res}
		}(i, f)
	}
	wg.Wait()

	for _, o := range outcomes {
		result.Invoices = append(result.Invoices, o.res)
		switch {
		case o.dup:
			result.TotalDuplicates++
			result.Errors = append(result.Errors, fmt.Sprintf("failed to process %s: %s", o.res.FileName, o.res.Error))
		case o.res.Status == constants.StatusFailed:
			// Validation failures land here too: the invoice is persisted
			// with status FAILED but never counts as processed.
			result.TotalFailed++
			if o.res.InvoiceID == uuid.Nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to process %s: %s", o.res.FileName, o.res.Error))
			}
		default:
			result.TotalProcessed++
			for _, w := range o.res.Warnings {
				if w.Code == constants.CodeDuplicatePossible {
					result.TotalDuplicates++
					break
				}
			}
		}
	}

	result.Success = result.TotalProcessed > 0
	p.logger.Info("process.batch.done",
		"processed", result.TotalProcessed,
		"failed", result.TotalFailed,
		"duplicates", result.TotalDuplicates,
	)
	return result, nil
}
