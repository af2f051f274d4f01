package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/export"
	"github.com/billingx/billing-extractor/internal/llm"
	"github.com/billingx/billing-extractor/internal/llm/gemini"
	"github.com/billingx/billing-extractor/internal/llm/mock"
	"github.com/billingx/billing-extractor/internal/llm/openai"
	"github.com/billingx/billing-extractor/internal/logging"
	"github.com/billingx/billing-extractor/internal/processing"
	"github.com/billingx/billing-extractor/internal/repository"
	"github.com/billingx/billing-extractor/internal/server"
	"github.com/billingx/billing-extractor/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "billingd:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logging.Init("billingd", cfg.Server.LogFile)
	logger := logging.Base()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer client.Close(logger)

	if err := client.HealthCheck(ctx, 3*time.Second); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		if err := client.Migrate(ctx, logger); err != nil {
			return err
		}
	}

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, logger)
	if err != nil {
		return err
	}

	extractor, err := newExtractor(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("llm.provider.selected", "provider", cfg.LLM.Provider)

	repo := repository.NewInvoiceRepository(client, logger)
	processor := processing.NewProcessor(extractor, repo, store, cfg, logger)
	exporter := export.NewService(repo, logger)

	health := func(c *gin.Context) error {
		return client.HealthCheck(c.Request.Context(), 2*time.Second)
	}
	handler := server.NewHandler(processor, repo, exporter, health, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: server.NewRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http.serve", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("http.shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("http.shutdown.ok")
	return nil
}

func newExtractor(cfg *common.Config, logger *slog.Logger) (llm.Extractor, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.New(cfg.LLM, logger)
	case "gemini":
		return gemini.New(cfg.LLM, logger)
	case "mock":
		return mock.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
