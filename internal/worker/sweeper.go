// Package worker runs the scheduled extraction sweep: it picks up receipts
// whose background processing never ran or never finished.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/receiptvault/receiptvault/internal/pipeline"
	"github.com/receiptvault/receiptvault/internal/repository"
)

// ProcessFunc processes one receipt end to end.
type ProcessFunc func(ctx context.Context, receiptID string) error

// Sweeper drains PENDING receipts in batches and rescues receipts stuck in
// PROCESSING past the stale threshold.
type Sweeper struct {
	logger     *slog.Logger
	receipts   repository.ReceiptRepository
	process    ProcessFunc
	batchSize  int
	staleAfter time.Duration
	now        func() time.Time
}

func NewSweeper(receipts repository.ReceiptRepository, process ProcessFunc, batchSize int, staleAfter time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &Sweeper{
		logger:     logger,
		receipts:   receipts,
		process:    process,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Result summarizes one sweep.
type Result struct {
	Scanned   int `json:"scanned"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Rescued   int `json:"rescued"`
}

// Sweep runs one batch. Receipts are processed oldest first and one failure
// never stops the rest of the batch. Receipts stuck in PROCESSING longer
// than the stale threshold are marked FAILED first so they become claimable
// again.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	start := time.Now()

	stale, err := s.receipts.ListStaleProcessing(ctx, s.now().Add(-s.staleAfter), s.batchSize)
	if err != nil {
		return res, err
	}
	for i := range stale {
		if err := s.receipts.MarkFailed(ctx, stale[i].ID); err != nil {
			s.logger.Warn("worker.rescue_failed", "receipt_id", stale[i].ID, "error", err)
			continue
		}
		res.Rescued++
	}

	pending, err := s.receipts.ListPending(ctx, s.batchSize)
	if err != nil {
		return res, err
	}
	ids := make([]string, 0, len(pending)+res.Rescued)
	for i := range pending {
		ids = append(ids, pending[i].ID)
	}
	for i := range stale {
		ids = append(ids, stale[i].ID)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++
		err := s.process(ctx, id)
		switch {
		case err == nil:
			res.Succeeded++
		case !pipeline.Retryable(err):
			// claimed elsewhere or already done
			res.Skipped++
		default:
			res.Failed++
			s.logger.Warn("worker.sweep_receipt_failed", "receipt_id", id, "error", err)
		}
	}

	s.logger.Info("worker.sweep_done",
		"scanned", res.Scanned,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"rescued", res.Rescued,
		"elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

// Run sweeps on a fixed interval until ctx is cancelled. One sweep runs
// immediately on start.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("worker.sweep_error", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("worker.stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("worker.sweep_error", "error", err)
			}
		}
	}
}
