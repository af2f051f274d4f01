// Package server exposes the processing pipeline over HTTP.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/billingx/billing-extractor/constants"
	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/export"
	"github.com/billingx/billing-extractor/internal/logging"
	"github.com/billingx/billing-extractor/internal/processing"
	"github.com/billingx/billing-extractor/internal/repository"
)

type Handler struct {
	processor *processing.Processor
	repo      repository.InvoiceRepository
	exporter  *export.Service
	health    func(ctx *gin.Context) error
	logger    *slog.Logger
}

func NewHandler(
	processor *processing.Processor,
	repo repository.InvoiceRepository,
	exporter *export.Service,
	health func(ctx *gin.Context) error,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		processor: processor,
		repo:      repo,
		exporter:  exporter,
		health:    health,
		logger:    logger,
	}
}

// UploadInvoices accepts multipart files and runs them through the batch
// pipeline. Validation and duplicate detection default to on.
func (h *Handler) UploadInvoices(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}
	if len(uploads) > constants.MaxFilesPerBatch {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("too many files: maximum is %d", constants.MaxFilesPerBatch),
		})
		return
	}

	opts := processing.Options{
		EnableValidation:         boolQuery(c, "enableValidation", true),
		EnableDuplicateDetection: boolQuery(c, "enableDuplicateDetection", true),
	}

	files := make([]processing.BatchFile, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Size > constants.MaxFileSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file %s exceeds the %d byte limit", upload.Filename, constants.MaxFileSizeBytes),
			})
			return
		}
		f, err := upload.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot read file %s", upload.Filename)})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot read file %s", upload.Filename)})
			return
		}
		files = append(files, processing.BatchFile{FileName: upload.Filename, Data: data})
	}

	result, err := h.processor.ProcessBatch(c.Request.Context(), files, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchResultDTO(result))
}

// GetInvoice returns one invoice with line items and findings.
func (h *Handler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("invoice with ID %s not found", id)})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvoiceDTO(inv))
}

// ListInvoices pages through stored invoices newest first.
func (h *Handler) ListInvoices(c *gin.Context) {
	query := repository.ListQuery{
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "pageSize", 20),
		Vendor:   c.Query("vendorName"),
	}
	if from, ok := dateQuery(c, "fromDate"); ok {
		query.From = &from
	}
	if to, ok := dateQuery(c, "toDate"); ok {
		t := to.AddDate(0, 0, 1)
		query.To = &t
	}

	invoices, err := h.repo.GetAll(c.Request.Context(), query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]invoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceDTO(inv))
	}
	c.JSON(http.StatusOK, gin.H{
		"page":     query.Page,
		"pageSize": query.PageSize,
		"invoices": out,
	})
}

// ExportInvoices streams an XLSX workbook of matching invoices.
func (h *Handler) ExportInvoices(c *gin.Context) {
	var from, to *time.Time
	if f, ok := dateQuery(c, "fromDate"); ok {
		from = &f
	}
	if t, ok := dateQuery(c, "toDate"); ok {
		to = &t
	}

	data, err := h.exporter.ExportInvoicesXLSX(c.Request.Context(), c.Query("vendorName"), from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}

	fileName := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// DeleteInvoice removes an invoice and its children.
func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	removed, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("invoice with ID %s not found", id)})
		return
	}
	c.Status(http.StatusNoContent)
}

// Healthz reports process and dependency health.
func (h *Handler) Healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps known application errors to 4xx and hides everything else
// behind a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrDuplicateContent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logging.FromCtx(c.Request.Context()).Error("http.internal_error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func boolQuery(c *gin.Context, key string, def bool) bool {
	v := c.Query(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func dateQuery(c *gin.Context, key string) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
