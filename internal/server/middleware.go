package server

import (
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/repository"
)

const requestIDKey = "requestID"

// RequestLogging logs each request with a request ID, method, path, status,
// and latency.
func RequestLogging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		logger.Info("http.request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP())
	}
}

// Identity resolves the caller from the X-User-ID header set by the
// authenticating proxy and syncs the account into the local users table.
// Requests without the header are rejected.
func Identity(users repository.UserRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			respondWithError(c, logger, apperr.ErrUnauthorized)
			c.Abort()
			return
		}
		email := strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Email")))
		name := strings.TrimSpace(c.GetHeader("X-User-Name"))
		if _, err := users.Ensure(c.Request.Context(), userID, email, name); err != nil {
			respondWithError(c, logger, err)
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CronAuth guards the scheduled-job endpoints with a shared bearer secret.
// An empty configured secret disables the endpoints rather than leaving
// them open.
func CronAuth(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if secret == "" || !ok ||
			subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			respondWithError(c, logger, apperr.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
