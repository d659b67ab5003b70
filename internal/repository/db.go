// Package repository owns persistence for receipts, categories, and users.
// Repositories sit behind interfaces so the pipeline and handlers can be
// tested against the in-memory sqlite driver.
package repository

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/receiptvault/receiptvault/internal/config"
	"github.com/receiptvault/receiptvault/internal/entity"
)

// Open creates a pgx pool, wraps it as database/sql, and hands it to gorm.
// Pool sizing and statement timeouts are controlled here, not by gorm.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, *pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("db.connect", "max_conns", cfg.MaxConns)

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.parse_config_failed", "error", err)
		return nil, nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "receiptvault"
	if cfg.StatementTimeout > 0 {
		// postgres reads a bare number as milliseconds
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("db.connect_failed", "error", err)
		return nil, nil, err
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		logger.Error("db.ping_failed", "error", err)
		return nil, nil, err
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: stdlib.OpenDBFromPool(pool),
	}), &gorm.Config{
		// Unique violations must surface as gorm.ErrDuplicatedKey so the
		// category repository can map them to CATEGORY_EXISTS.
		TranslateError: true,
	})
	if err != nil {
		pool.Close()
		logger.Error("db.gorm_open_failed", "error", err)
		return nil, nil, err
	}

	logger.Info("db.connect_ok")
	return gdb, pool, nil
}

// HealthCheck pings the pool with a bounded timeout.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Ping(ctx)
}

// Migrate applies the model schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Category{},
		&entity.Receipt{},
		&entity.EmailForward{},
	)
}
