package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
)

// ListFilter narrows a receipt listing. Zero values mean "no constraint".
type ListFilter struct {
	Merchant   string
	CategoryID string
	Tag        string
	StartDate  *time.Time
	EndDate    *time.Time
	MinAmount  *float64
	MaxAmount  *float64
	Page       int
	Limit      int
}

type ReceiptRepository interface {
	Create(ctx context.Context, rec *entity.Receipt) error
	Get(ctx context.Context, id string) (*entity.Receipt, error)
	GetForUser(ctx context.Context, userID, id string) (*entity.Receipt, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]entity.Receipt, int64, error)
	Update(ctx context.Context, userID, id string, updates map[string]any) (*entity.Receipt, error)
	Delete(ctx context.Context, userID, id string) error

	// ClaimForProcessing conditionally transitions PENDING or FAILED to
	// PROCESSING. The compare-and-swap fails when another worker already
	// claimed the row, giving at-most-once processing per receipt id.
	ClaimForProcessing(ctx context.Context, id string) (*entity.Receipt, error)
	MarkFailed(ctx context.Context, id string) error
	CompleteExtraction(ctx context.Context, id string, updates map[string]any) error

	ListPending(ctx context.Context, limit int) ([]entity.Receipt, error)
	ListStaleProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]entity.Receipt, error)
	// ListForRange returns receipts dated in [from, to). Either bound may
	// be nil.
	ListForRange(ctx context.Context, userID string, from, to *time.Time) ([]entity.Receipt, error)
	ListRecent(ctx context.Context, userID string, since time.Time, excludeID string) ([]entity.Receipt, error)
	ListExpiringWarranties(ctx context.Context, userID string, until time.Time) ([]entity.Receipt, error)
}

type receiptRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewReceiptRepository(db *gorm.DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger}
}

func (r *receiptRepository) Create(ctx context.Context, rec *entity.Receipt) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return tx.Model(&entity.User{}).
			Where("id = ?", rec.UserID).
			UpdateColumn("receipts_count", gorm.Expr("receipts_count + 1")).Error
	})
	if err != nil {
		r.logger.Error("repository.receipt.create_failed", "user_id", rec.UserID, "error", err)
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return nil
}

func (r *receiptRepository) Get(ctx context.Context, id string) (*entity.Receipt, error) {
	var rec entity.Receipt
	err := r.db.WithContext(ctx).Preload("Category").First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrReceiptNotFound
		}
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &rec, nil
}

func (r *receiptRepository) GetForUser(ctx context.Context, userID, id string) (*entity.Receipt, error) {
	var rec entity.Receipt
	err := r.db.WithContext(ctx).Preload("Category").
		First(&rec, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		// A cross-user lookup reports not-found, never existence.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrReceiptNotFound
		}
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &rec, nil
}

func (r *receiptRepository) List(ctx context.Context, userID string, filter ListFilter) ([]entity.Receipt, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	q := r.db.WithContext(ctx).Model(&entity.Receipt{}).Where("user_id = ?", userID)
	if filter.Merchant != "" {
		q = q.Where("LOWER(merchant) LIKE ?", "%"+strings.ToLower(filter.Merchant)+"%")
	}
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Tag != "" {
		q = q.Where("tags LIKE ?", `%"`+filter.Tag+`"%`)
	}
	if filter.StartDate != nil {
		q = q.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("date < ?", *filter.EndDate)
	}
	if filter.MinAmount != nil {
		q = q.Where("total >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		q = q.Where("total <= ?", *filter.MaxAmount)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	var recs []entity.Receipt
	err := q.Preload("Category").
		Order("date DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&recs).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return recs, total, nil
}

func (r *receiptRepository) Update(ctx context.Context, userID, id string, updates map[string]any) (*entity.Receipt, error) {
	res := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrReceiptNotFound
	}
	return r.GetForUser(ctx, userID, id)
}

func (r *receiptRepository) Delete(ctx context.Context, userID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&entity.Receipt{})
		if res.Error != nil {
			return apperr.Wrap(apperr.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrReceiptNotFound
		}
		err := tx.Model(&entity.User{}).
			Where("id = ? AND receipts_count > 0", userID).
			UpdateColumn("receipts_count", gorm.Expr("receipts_count - 1")).Error
		if err != nil {
			return apperr.Wrap(apperr.ErrInternalServer, err)
		}
		return nil
	})
}

func (r *receiptRepository) ClaimForProcessing(ctx context.Context, id string) (*entity.Receipt, error) {
	res := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Where("id = ? AND extraction_status IN ?", id,
			[]constants.ExtractionStatus{constants.StatusPending, constants.StatusFailed}).
		Update("extraction_status", constants.StatusProcessing)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		rec, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.ExtractionStatus == constants.StatusCompleted {
			return nil, apperr.ErrReceiptCompleted
		}
		return nil, apperr.ErrReceiptProcessing
	}
	return r.Get(ctx, id)
}

func (r *receiptRepository) MarkFailed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Where("id = ? AND extraction_status = ?", id, constants.StatusProcessing).
		Update("extraction_status", constants.StatusFailed).Error
	if err != nil {
		r.logger.Error("repository.receipt.mark_failed_error", "receipt_id", id, "error", err)
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return nil
}

func (r *receiptRepository) CompleteExtraction(ctx context.Context, id string, updates map[string]any) error {
	updates["extraction_status"] = constants.StatusCompleted
	res := r.db.WithContext(ctx).Model(&entity.Receipt{}).
		Where("id = ? AND extraction_status = ?", id, constants.StatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrReceiptNotFound
	}
	return nil
}

func (r *receiptRepository) ListPending(ctx context.Context, limit int) ([]entity.Receipt, error) {
	var recs []entity.Receipt
	err := r.db.WithContext(ctx).
		Where("extraction_status = ?", constants.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return recs, nil
}

func (r *receiptRepository) ListStaleProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]entity.Receipt, error) {
	var recs []entity.Receipt
	err := r.db.WithContext(ctx).
		Where("extraction_status = ? AND updated_at < ?", constants.StatusProcessing, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return recs, nil
}

func (r *receiptRepository) ListForRange(ctx context.Context, userID string, from, to *time.Time) ([]entity.Receipt, error) {
	q := r.db.WithContext(ctx).Preload("Category").Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date < ?", *to)
	}
	var recs []entity.Receipt
	if err := q.Order("date ASC").Find(&recs).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return recs, nil
}

func (r *receiptRepository) ListRecent(ctx context.Context, userID string, since time.Time, excludeID string) ([]entity.Receipt, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var recs []entity.Receipt
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return recs, nil
}

func (r *receiptRepository) ListExpiringWarranties(ctx context.Context, userID string, until time.Time) ([]entity.Receipt, error) {
	var recs []entity.Receipt
	err := r.db.WithContext(ctx).Preload("Category").
		Where("user_id = ? AND warranty_expires_at IS NOT NULL AND warranty_expires_at <= ? AND warranty_expires_at >= ?",
			userID, until, time.Now()).
		Order("warranty_expires_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return recs, nil
}
