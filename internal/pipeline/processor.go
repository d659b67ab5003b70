// Package pipeline drives a receipt from upload to a completed extraction.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/categorize"
	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/extract"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/storage"
)

// Processor owns the extraction pipeline for one receipt at a time. All
// collaborators are injected; the AI suggester may be nil.
type Processor struct {
	receipts   repository.ReceiptRepository
	categories repository.CategoryRepository
	fetcher    *storage.Fetcher
	extractor  *extract.Service
	suggester  categorize.Suggester
	logger     *slog.Logger
}

func NewProcessor(
	receipts repository.ReceiptRepository,
	categories repository.CategoryRepository,
	fetcher *storage.Fetcher,
	extractor *extract.Service,
	suggester categorize.Suggester,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		receipts:   receipts,
		categories: categories,
		fetcher:    fetcher,
		extractor:  extractor,
		suggester:  suggester,
		logger:     logger,
	}
}

// Process claims a receipt and runs it through fetch, extraction,
// categorization, and persistence. The claim is a compare-and-set on the
// extraction status, so two concurrent calls for the same receipt cannot
// both run: the loser gets ErrReceiptProcessing or ErrReceiptCompleted.
// Any failure after a successful claim leaves the receipt FAILED, never
// stuck in PROCESSING.
func (p *Processor) Process(ctx context.Context, receiptID string) (err error) {
	start := time.Now()

	rec, err := p.receipts.ClaimForProcessing(ctx, receiptID)
	if err != nil {
		return err
	}
	p.logger.Info("pipeline.claimed", "receipt_id", receiptID, "user_id", rec.UserID)

	completed := false
	defer func() {
		if completed {
			return
		}
		if markErr := p.receipts.MarkFailed(context.WithoutCancel(ctx), receiptID); markErr != nil {
			p.logger.Error("pipeline.mark_failed_error", "receipt_id", receiptID, "error", markErr)
		}
		if err == nil {
			err = apperr.ErrExtractionFailed
		}
	}()

	source := rec.ImageKey
	if source == "" {
		source = rec.ImageURL
	}
	image, err := p.fetcher.Fetch(ctx, source)
	if err != nil {
		p.logger.Error("pipeline.image_fetch_failed", "receipt_id", receiptID, "error", err)
		return err
	}

	data, err := p.extractor.Extract(ctx, image, mimeFor(source))
	if err != nil {
		p.logger.Error("pipeline.extract_failed", "receipt_id", receiptID, "error", err)
		return apperr.Wrap(apperr.ErrExtractionFailed, err)
	}

	updates := p.buildUpdates(rec, data)
	p.applyCategory(ctx, rec, data, updates)

	if err = p.receipts.CompleteExtraction(ctx, receiptID, updates); err != nil {
		p.logger.Error("pipeline.persist_failed", "receipt_id", receiptID, "error", err)
		return err
	}
	completed = true

	p.logger.Info("pipeline.completed",
		"receipt_id", receiptID,
		"merchant", data.Merchant,
		"total", data.Total,
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// buildUpdates merges extracted fields over the stored receipt. Merchant,
// date, and total only replace values the user has not already supplied:
// an empty or zero extraction never clobbers existing data.
func (p *Processor) buildUpdates(rec *entity.Receipt, data extract.ExtractedData) map[string]any {
	updates := map[string]any{
		"tax":   data.Tax,
		"items": entity.LineItems(data.Items),
	}
	if data.Merchant != "" {
		updates["merchant"] = data.Merchant
	} else if rec.Merchant == "" {
		updates["merchant"] = "Unknown"
	}
	if !data.Date.IsZero() {
		updates["date"] = data.Date
	}
	if data.Total != 0 {
		updates["total"] = data.Total
	}
	// Subtotal and payment method always take the extracted value, clearing
	// the column when the extraction saw none.
	updates["subtotal"] = data.Subtotal
	updates["payment_method"] = data.PaymentMethod
	if payload, err := data.Payload(); err == nil {
		updates["ocr_data"] = entity.JSONBlob(payload)
	} else {
		p.logger.Warn("pipeline.payload_encode_failed", "receipt_id", rec.ID, "error", err)
	}
	return updates
}

// applyCategory runs the keyword pass, then the AI suggester when keywords
// found nothing. It only fires when the receipt has no category yet and the
// extraction identified a merchant. Categorization is best-effort: any
// failure here leaves the receipt uncategorized and the pipeline proceeds.
func (p *Processor) applyCategory(ctx context.Context, rec *entity.Receipt, data extract.ExtractedData, updates map[string]any) {
	if rec.CategoryID != nil || data.Merchant == "" {
		return
	}
	if err := p.categories.EnsureDefaults(ctx, rec.UserID); err != nil {
		p.logger.Warn("pipeline.seed_categories_failed", "user_id", rec.UserID, "error", err)
	}
	existing, err := p.categories.ListForUser(ctx, rec.UserID)
	if err != nil {
		p.logger.Warn("pipeline.list_categories_failed", "user_id", rec.UserID, "error", err)
		return
	}
	refs := make([]categorize.CategoryRef, 0, len(existing))
	for _, c := range existing {
		refs = append(refs, categorize.CategoryRef{ID: c.ID, Name: c.Name, IRSCategory: c.IRSLabel()})
	}

	suggestion := categorize.Keyword(data.Merchant, data.Items, refs)
	if suggestion == nil && p.suggester != nil {
		suggestion, err = p.suggester.SuggestCategory(ctx, data.Merchant, data.Items, data.Total, data.Date, refs)
		if err != nil {
			p.logger.Warn("pipeline.ai_categorize_failed", "receipt_id", rec.ID, "error", err)
			return
		}
	}
	if suggestion == nil {
		return
	}

	categoryID := suggestion.CategoryID
	if categoryID == "" {
		cat, err := p.categories.CreateOrFetch(ctx, rec.UserID, suggestion.CategoryName, suggestion.IRSCategory)
		if err != nil {
			p.logger.Warn("pipeline.create_category_failed",
				"user_id", rec.UserID, "name", suggestion.CategoryName, "error", err)
			return
		}
		categoryID = cat.ID
	}
	updates["category_id"] = categoryID
	p.logger.Info("pipeline.categorized",
		"receipt_id", rec.ID,
		"category_id", categoryID,
		"confidence", suggestion.Confidence)
}

// Retryable reports whether a Process error indicates the receipt may be
// attempted again later, as opposed to being claimed elsewhere or done.
func Retryable(err error) bool {
	return !errors.Is(err, apperr.ErrReceiptProcessing) &&
		!errors.Is(err, apperr.ErrReceiptCompleted) &&
		!errors.Is(err, apperr.ErrReceiptNotFound)
}

func mimeFor(source string) string {
	return constants.MimeForExt(strings.TrimPrefix(filepath.Ext(source), "."))
}
