// dbhealth pings the configured database and reports the invoice count.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/billingx/billing-extractor/internal/common"
	"github.com/billingx/billing-extractor/internal/logging"
	"github.com/billingx/billing-extractor/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dbhealth:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logging.Init("dbhealth", cfg.Server.LogFile)
	logger := logging.Base()

	if cfg.Database.DSN == "" {
		return fmt.Errorf("DB_URL env var is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer client.Close(logger)

	if err := client.HealthCheck(ctx, 3*time.Second); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	repo := repository.NewInvoiceRepository(client, logger)
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("database OK (%s), %d invoices stored\n", cfg.Database.Driver, n)
	return nil
}
