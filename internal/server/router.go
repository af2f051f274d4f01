package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/billingx/billing-extractor/internal/logging"
)

// NewRouter wires the HTTP surface onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api/invoices")
	{
		api.POST("/upload", h.UploadInvoices)
		api.GET("", h.ListInvoices)
		api.GET("/export", h.ExportInvoices)
		api.GET("/:id", h.GetInvoice)
		api.DELETE("/:id", h.DeleteInvoice)
	}
	return r
}

// requestLogger attaches a request-scoped logger to the context and emits one
// line per request.
func requestLogger(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := h.logger.With(
			"request_id", uuid.New().String(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.Request = c.Request.WithContext(logging.WithCtx(c.Request.Context(), l))

		c.Next()

		l.Info("http.request",
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
