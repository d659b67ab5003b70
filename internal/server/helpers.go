package server

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/receiptvault/receiptvault/internal/apperr"
)

const userIDKey = "userID"

// currentUserID extracts the authenticated user ID from the Gin context.
func currentUserID(c *gin.Context) (string, error) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return "", apperr.ErrUnauthorized
	}
	id, _ := v.(string)
	if id == "" {
		return "", apperr.ErrUnauthorized
	}
	return id, nil
}

// respondWithError writes a consistent JSON error response. AppErrors keep
// their status, code, and message; anything else is logged and reported as
// a generic internal error so details never leak to clients.
func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Error("http.app_error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Error("http.unexpected_error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method)
	c.JSON(apperr.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperr.ErrInternalServer.Code,
			"message": apperr.ErrInternalServer.Message,
		},
	})
}
