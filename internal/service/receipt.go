// Package service holds the application services between the HTTP handlers
// and the repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/async"
	"github.com/receiptvault/receiptvault/internal/duplicate"
	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/storage"
)

// UploadResult pairs the created receipt with the duplicate verdict so the
// client can warn the user without blocking the upload.
type UploadResult struct {
	Receipt   *entity.Receipt    `json:"receipt"`
	Duplicate *duplicate.Verdict `json:"duplicate,omitempty"`
}

// ReceiptService owns the receipt lifecycle around the extraction pipeline:
// upload, CRUD, and warranty queries.
type ReceiptService struct {
	logger       *slog.Logger
	receipts     repository.ReceiptRepository
	users        repository.UserRepository
	store        storage.ImageStore
	detector     *duplicate.Detector
	queue        async.Queue
	receiptLimit int
}

func NewReceiptService(
	receipts repository.ReceiptRepository,
	users repository.UserRepository,
	store storage.ImageStore,
	detector *duplicate.Detector,
	queue async.Queue,
	receiptLimit int,
	logger *slog.Logger,
) *ReceiptService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{
		logger:       logger,
		receipts:     receipts,
		users:        users,
		store:        store,
		detector:     detector,
		queue:        queue,
		receiptLimit: receiptLimit,
	}
}

// UploadParams carries the optional user-entered fields accompanying an
// upload.
type UploadParams struct {
	Filename string
	Data     []byte
	Merchant string
	Date     *time.Time
	Total    *float64
	Notes    string
	Tags     []string
}

// Upload stores the image, runs duplicate detection against the user's
// recent receipts, creates the PENDING row, and queues background
// extraction. A positive duplicate verdict is reported, not enforced.
func (s *ReceiptService) Upload(ctx context.Context, userID string, p UploadParams) (*UploadResult, error) {
	if len(p.Data) == 0 {
		return nil, apperr.WithMessage(apperr.ErrInvalidInput, "file is empty")
	}
	ext := constants.NormalizeExt(filepath.Ext(p.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return nil, apperr.ErrUnsupportedFileFormat
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.receiptLimit > 0 && user.ReceiptsCount >= s.receiptLimit {
		return nil, apperr.ErrReceiptLimit
	}

	key := fmt.Sprintf("%s/%s.%s", userID, uuid.New().String(), ext)
	url, err := s.store.Put(ctx, key, p.Data, constants.MimeForExt(ext))
	if err != nil {
		return nil, err
	}

	rec := &entity.Receipt{
		UserID:   userID,
		Merchant: strings.TrimSpace(p.Merchant),
		Date:     time.Now().UTC(),
		ImageURL: url,
		ImageKey: key,
		Tags:     entity.StringList(p.Tags),
	}
	if p.Date != nil {
		rec.Date = *p.Date
	}
	if p.Total != nil {
		rec.Total = *p.Total
	}
	if n := strings.TrimSpace(p.Notes); n != "" {
		rec.Notes = &n
	}

	verdict := s.detectDuplicate(ctx, rec, p.Data)

	if err := s.receipts.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("receipt.uploaded",
		"receipt_id", rec.ID,
		"user_id", userID,
		"bytes", len(p.Data),
		"duplicate", verdict != nil && verdict.IsDuplicate)

	if err := s.queue.Enqueue(ctx, async.Job{ReceiptID: rec.ID}); err != nil {
		// the scheduled sweep picks it up later
		s.logger.Warn("receipt.enqueue_failed", "receipt_id", rec.ID, "error", err)
	}

	res := &UploadResult{Receipt: rec}
	if verdict != nil && verdict.IsDuplicate {
		res.Duplicate = verdict
	}
	return res, nil
}

func (s *ReceiptService) detectDuplicate(ctx context.Context, rec *entity.Receipt, image []byte) *duplicate.Verdict {
	if s.detector == nil {
		return nil
	}
	since := rec.Date.Add(-30 * 24 * time.Hour)
	recent, err := s.receipts.ListRecent(ctx, rec.UserID, since, "")
	if err != nil {
		s.logger.Warn("receipt.duplicate_check_failed", "user_id", rec.UserID, "error", err)
		return nil
	}
	candidates := make([]duplicate.Candidate, 0, len(recent))
	for i := range recent {
		candidates = append(candidates, duplicate.Candidate{
			ID:       recent[i].ID,
			Merchant: recent[i].Merchant,
			Date:     recent[i].Date,
			Total:    recent[i].Total,
		})
	}
	v := s.detector.Detect(ctx, image, duplicate.Candidate{
		Merchant: rec.Merchant,
		Date:     rec.Date,
		Total:    rec.Total,
	}, candidates)
	return &v
}

func (s *ReceiptService) Get(ctx context.Context, userID, id string) (*entity.Receipt, error) {
	return s.receipts.GetForUser(ctx, userID, id)
}

func (s *ReceiptService) List(ctx context.Context, userID string, filter repository.ListFilter) ([]entity.Receipt, int64, error) {
	return s.receipts.List(ctx, userID, filter)
}

// UpdateParams carries the PATCH fields; nil pointers mean "leave as is".
type UpdateParams struct {
	Merchant          *string    `json:"merchant"`
	Date              *time.Time `json:"date"`
	Total             *float64   `json:"total"`
	Tax               *float64   `json:"tax"`
	Notes             *string    `json:"notes"`
	Tags              []string   `json:"tags"`
	CategoryID        *string    `json:"categoryId"`
	WarrantyExpiresAt *time.Time `json:"warrantyExpiresAt"`
	WarrantyItem      *string    `json:"warrantyItem"`
}

func (s *ReceiptService) Update(ctx context.Context, userID, id string, p UpdateParams) (*entity.Receipt, error) {
	updates := map[string]any{}
	if p.Merchant != nil {
		if strings.TrimSpace(*p.Merchant) == "" {
			return nil, apperr.WithMessage(apperr.ErrInvalidInput, "merchant cannot be empty")
		}
		updates["merchant"] = strings.TrimSpace(*p.Merchant)
	}
	if p.Date != nil {
		updates["date"] = *p.Date
	}
	if p.Total != nil {
		if *p.Total < 0 {
			return nil, apperr.WithMessage(apperr.ErrInvalidInput, "total cannot be negative")
		}
		updates["total"] = *p.Total
	}
	if p.Tax != nil {
		updates["tax"] = *p.Tax
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if p.Tags != nil {
		updates["tags"] = entity.StringList(p.Tags)
	}
	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			updates["category_id"] = nil
		} else {
			updates["category_id"] = *p.CategoryID
		}
	}
	if p.WarrantyExpiresAt != nil {
		updates["warranty_expires_at"] = *p.WarrantyExpiresAt
	}
	if p.WarrantyItem != nil {
		updates["warranty_item"] = *p.WarrantyItem
	}
	if len(updates) == 0 {
		return nil, apperr.WithMessage(apperr.ErrInvalidInput, "no fields to update")
	}
	return s.receipts.Update(ctx, userID, id, updates)
}

func (s *ReceiptService) Delete(ctx context.Context, userID, id string) error {
	if err := s.receipts.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("receipt.deleted", "receipt_id", id, "user_id", userID)
	return nil
}

// ExpiringWarranties lists receipts whose warranty runs out within the
// window, soonest first.
func (s *ReceiptService) ExpiringWarranties(ctx context.Context, userID string, within time.Duration) ([]entity.Receipt, error) {
	if within <= 0 {
		within = 30 * 24 * time.Hour
	}
	return s.receipts.ListExpiringWarranties(ctx, userID, time.Now().Add(within))
}
