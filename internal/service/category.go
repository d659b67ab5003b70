package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/repository"
)

// CategoryService manages a user's expense categories.
type CategoryService struct {
	logger     *slog.Logger
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryService{logger: logger, categories: categories}
}

// List returns the user's categories, seeding the default set on first use.
func (s *CategoryService) List(ctx context.Context, userID string) ([]entity.Category, error) {
	if err := s.categories.EnsureDefaults(ctx, userID); err != nil {
		return nil, err
	}
	return s.categories.ListForUser(ctx, userID)
}

// CreateParams is the POST payload for a custom category.
type CreateParams struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IRSCategory *string `json:"irsCategory"`
	Color       string  `json:"color"`
}

func (s *CategoryService) Create(ctx context.Context, userID string, p CreateParams) (*entity.Category, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, apperr.WithMessage(apperr.ErrInvalidInput, "name is required")
	}
	cat := &entity.Category{
		UserID:      userID,
		Name:        name,
		Description: p.Description,
		IRSCategory: p.IRSCategory,
	}
	if p.Color != "" {
		cat.Color = p.Color
	}
	if err := s.categories.Create(ctx, cat); err != nil {
		return nil, err
	}
	s.logger.Info("category.created", "category_id", cat.ID, "user_id", userID, "name", name)
	return cat, nil
}
