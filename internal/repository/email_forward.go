package repository

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
)

type EmailForwardRepository interface {
	Create(ctx context.Context, fwd *entity.EmailForward) error
	MarkProcessed(ctx context.Context, id string) error
}

type emailForwardRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewEmailForwardRepository(db *gorm.DB, logger *slog.Logger) EmailForwardRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &emailForwardRepository{db: db, logger: logger}
}

func (r *emailForwardRepository) Create(ctx context.Context, fwd *entity.EmailForward) error {
	if err := r.db.WithContext(ctx).Create(fwd).Error; err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return nil
}

func (r *emailForwardRepository) MarkProcessed(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&entity.EmailForward{}).
		Where("id = ?", id).
		Update("processed", true).Error
	if err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return nil
}
