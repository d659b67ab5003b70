// receiptvaultd is the API server: it serves the receipt endpoints and runs
// the in-process extraction queue.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/receiptvault/receiptvault/internal/async"
	"github.com/receiptvault/receiptvault/internal/categorize"
	"github.com/receiptvault/receiptvault/internal/config"
	"github.com/receiptvault/receiptvault/internal/duplicate"
	"github.com/receiptvault/receiptvault/internal/extract"
	"github.com/receiptvault/receiptvault/internal/insights"
	"github.com/receiptvault/receiptvault/internal/llm/gemini"
	"github.com/receiptvault/receiptvault/internal/pipeline"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/server"
	"github.com/receiptvault/receiptvault/internal/service"
	"github.com/receiptvault/receiptvault/internal/storage"
	"github.com/receiptvault/receiptvault/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("main.config_invalid", "error", err)
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
	if err := repository.Migrate(db); err != nil {
		logger.Error("main.migrate_failed", "error", err)
		os.Exit(1)
	}

	receiptRepo := repository.NewReceiptRepository(db, logger)
	categoryRepo := repository.NewCategoryRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	forwardRepo := repository.NewEmailForwardRepository(db, logger)

	var store storage.ImageStore
	if cfg.Storage.Bucket != "" {
		s3store, err := storage.NewS3Store(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Error("main.s3_store_failed", "error", err)
			os.Exit(1)
		}
		store = s3store
	} else {
		local, err := storage.NewLocalStore(cfg.Storage.LocalDir, logger)
		if err != nil {
			logger.Error("main.local_store_failed", "error", err)
			os.Exit(1)
		}
		store = local
		logger.Warn("main.local_storage", "dir", cfg.Storage.LocalDir)
	}
	fetcher := storage.NewFetcher(store, cfg.Storage.FetchTimeout, logger)

	// one Gemini client backs every AI capability; nil disables them all
	ai := gemini.NewClient(cfg.Gemini, logger)
	var vision extract.VisionModel
	var suggester categorize.Suggester
	var judge duplicate.Judge
	var trends insights.TrendModel
	if ai != nil {
		vision, suggester, judge, trends = ai, ai, ai, ai
	} else {
		logger.Warn("main.ai_disabled")
	}

	extractor := extract.NewService(vision, nil, logger)
	processor := pipeline.NewProcessor(receiptRepo, categoryRepo, fetcher, extractor, suggester, logger)
	detector := duplicate.NewDetector(judge, logger)

	queue := async.NewMemoryQueue(4, 256, processor.Process, logger)
	sweeper := worker.NewSweeper(receiptRepo, processor.Process, cfg.Worker.BatchSize, cfg.Worker.StaleAfter, logger)

	receiptSvc := service.NewReceiptService(receiptRepo, userRepo, store, detector, queue, cfg.Limits.FreeReceipts, logger)
	categorySvc := service.NewCategoryService(categoryRepo, logger)
	reportSvc := service.NewReportService(receiptRepo, insights.NewService(trends, logger), logger)
	forwardSvc := service.NewForwardService(forwardRepo, receiptRepo, userRepo, queue, logger)

	srv := server.New(cfg.Server, cfg.Worker.CronSecret, userRepo, server.Handlers{
		Receipts:   server.NewReceiptHandler(receiptSvc, processor, logger),
		Categories: server.NewCategoryHandler(categorySvc, logger),
		Reports:    server.NewReportHandler(reportSvc, logger),
		Admin:      server.NewAdminHandler(forwardSvc, sweeper, logger),
	}, logger)

	err = srv.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)

	if err != nil {
		logger.Error("main.server_error", "error", err)
		os.Exit(1)
	}
	logger.Info("main.stopped")
}
