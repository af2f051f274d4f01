// Package repository persists invoices and their findings through database/sql,
// backed by Postgres in production and in-memory SQLite in tests.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/billingx/billing-extractor/internal/common"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Client bundles the sql handle with the optional pgx pool behind it.
type Client struct {
	DB     *sql.DB
	Pool   *pgxpool.Pool // nil for sqlite
	Driver string
}

// Open connects per cfg.Driver. Postgres goes through a pgx pool wrapped as
// *sql.DB; sqlite opens the DSN directly.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case "postgres":
		logger.Info("db.connect.start", "driver", cfg.Driver)
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("db.connect.failed", "error", err)
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		pc.MaxConns = cfg.MaxConns
		pc.MinConns = cfg.MinConns
		pc.MaxConnLifetime = cfg.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.RuntimeParams["application_name"] = "billing-extractor"
		if cfg.StatementTimeout > 0 {
			pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
		}

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("db.connect.failed", "error", err)
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		logger.Info("db.connect.ok", "driver", cfg.Driver)
		return &Client{DB: stdlib.OpenDBFromPool(pool), Pool: pool, Driver: cfg.Driver}, nil

	case "sqlite":
		logger.Info("db.connect.start", "driver", cfg.Driver)
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("db.connect.failed", "error", err)
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// In-memory databases vanish when their only connection closes.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
		logger.Info("db.connect.ok", "driver", cfg.Driver)
		return &Client{DB: db, Driver: cfg.Driver}, nil

	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// Migrate applies the embedded migrations in file order. Statements are
// written to the SQL subset both backends accept.
func (c *Client) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		script, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := c.DB.ExecContext(ctx, string(script)); err != nil {
			logger.Error("db.migrate.failed", "migration", name, "error", err)
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		logger.Info("db.migrate.applied", "migration", name)
	}
	return nil
}

// HealthCheck pings the database with an optional timeout.
func (c *Client) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.DB.PingContext(ctx)
}

// Close releases the sql handle and, for postgres, the pool behind it.
func (c *Client) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.close.start")
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("db.close.failed", "error", err)
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	logger.Info("db.close.ok")
}
