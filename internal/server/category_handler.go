package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/service"
)

// CategoryHandler handles category requests.
type CategoryHandler struct {
	logger     *slog.Logger
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryHandler{logger: logger, categories: categories}
}

// List returns the user's categories, seeding defaults on first use.
func (h *CategoryHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	cats, err := h.categories.List(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// Create adds a custom category; a duplicate name returns 409.
func (h *CategoryHandler) Create(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	var params service.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, err.Error()))
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), userID, params)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": cat})
}
