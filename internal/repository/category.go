package repository

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
)

type CategoryRepository interface {
	ListForUser(ctx context.Context, userID string) ([]entity.Category, error)
	GetForUser(ctx context.Context, userID, id string) (*entity.Category, error)
	Create(ctx context.Context, cat *entity.Category) error

	// CreateOrFetch is the idempotent create used by auto-categorization:
	// an insert racing on the (user_id, name) unique index falls through to
	// a read, so concurrent uploads yield exactly one row.
	CreateOrFetch(ctx context.Context, userID, name, irsCategory string) (*entity.Category, error)

	// EnsureDefaults seeds the fixed default set when the user has none.
	EnsureDefaults(ctx context.Context, userID string) error
}

type categoryRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewCategoryRepository(db *gorm.DB, logger *slog.Logger) CategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &categoryRepository{db: db, logger: logger}
}

func (r *categoryRepository) ListForUser(ctx context.Context, userID string) ([]entity.Category, error) {
	var cats []entity.Category
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&cats).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return cats, nil
}

func (r *categoryRepository) GetForUser(ctx context.Context, userID, id string) (*entity.Category, error) {
	var cat entity.Category
	err := r.db.WithContext(ctx).First(&cat, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrCategoryNotFound
		}
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &cat, nil
}

func (r *categoryRepository) Create(ctx context.Context, cat *entity.Category) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Category{}).
		Where("user_id = ? AND name = ?", cat.UserID, cat.Name).
		Count(&count).Error
	if err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if count > 0 {
		return apperr.ErrCategoryExists
	}
	if err := r.db.WithContext(ctx).Create(cat).Error; err != nil {
		// The unique index can still fire under a concurrent create.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrCategoryExists
		}
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return nil
}

func (r *categoryRepository) CreateOrFetch(ctx context.Context, userID, name, irsCategory string) (*entity.Category, error) {
	cat := entity.Category{
		UserID: userID,
		Name:   name,
	}
	if irsCategory != "" {
		cat.IRSCategory = &irsCategory
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&cat).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	// Re-read: on conflict the insert was a no-op and cat.ID belongs to no row.
	var out entity.Category
	err = r.db.WithContext(ctx).First(&out, "user_id = ? AND name = ?", userID, name).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &out, nil
}

func (r *categoryRepository) EnsureDefaults(ctx context.Context, userID string) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Category{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return apperr.Wrap(apperr.ErrInternalServer, err)
	}
	if count > 0 {
		return nil
	}

	for _, def := range constants.DefaultCategories {
		irs := def.IRSCategory
		cat := entity.Category{
			UserID:      userID,
			Name:        def.Name,
			IRSCategory: &irs,
			Color:       def.Color,
			IsDefault:   true,
		}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
				DoNothing: true,
			}).
			Create(&cat).Error
		if err != nil {
			return apperr.Wrap(apperr.ErrInternalServer, err)
		}
	}
	r.logger.Info("repository.category.defaults_seeded", "user_id", userID)
	return nil
}
