// receiptvault-worker runs the extraction sweep on an interval, picking up
// receipts the API server never processed.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/receiptvault/receiptvault/internal/categorize"
	"github.com/receiptvault/receiptvault/internal/config"
	"github.com/receiptvault/receiptvault/internal/extract"
	"github.com/receiptvault/receiptvault/internal/llm/gemini"
	"github.com/receiptvault/receiptvault/internal/pipeline"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/storage"
	"github.com/receiptvault/receiptvault/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load(logger)
	if cfg.Database.DSN == "" {
		logger.Error("main.config_invalid", "error", "DB_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("main.db_open_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	receiptRepo := repository.NewReceiptRepository(db, logger)
	categoryRepo := repository.NewCategoryRepository(db, logger)

	var store storage.ImageStore
	if cfg.Storage.Bucket != "" {
		store, err = storage.NewS3Store(ctx, cfg.Storage, logger)
	} else {
		store, err = storage.NewLocalStore(cfg.Storage.LocalDir, logger)
	}
	if err != nil {
		logger.Error("main.store_failed", "error", err)
		os.Exit(1)
	}
	fetcher := storage.NewFetcher(store, cfg.Storage.FetchTimeout, logger)

	ai := gemini.NewClient(cfg.Gemini, logger)
	var vision extract.VisionModel
	var suggester categorize.Suggester
	if ai != nil {
		vision, suggester = ai, ai
	}

	extractor := extract.NewService(vision, nil, logger)
	processor := pipeline.NewProcessor(receiptRepo, categoryRepo, fetcher, extractor, suggester, logger)
	sweeper := worker.NewSweeper(receiptRepo, processor.Process, cfg.Worker.BatchSize, cfg.Worker.StaleAfter, logger)

	logger.Info("main.worker_started", "interval", cfg.Worker.Interval.String())
	sweeper.Run(ctx, cfg.Worker.Interval)
}
