package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/service"
	"github.com/receiptvault/receiptvault/internal/worker"
)

// AdminHandler handles the machine-facing endpoints: the email-forward
// webhook and the scheduled processing sweep. Both sit behind the cron
// secret rather than user identity.
type AdminHandler struct {
	logger   *slog.Logger
	forwards *service.ForwardService
	sweeper  *worker.Sweeper
}

func NewAdminHandler(forwards *service.ForwardService, sweeper *worker.Sweeper, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{logger: logger, forwards: forwards, sweeper: sweeper}
}

// IngestForward accepts a forwarded email from the mail provider webhook.
func (h *AdminHandler) IngestForward(c *gin.Context) {
	var params service.IngestParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, err.Error()))
		return
	}
	result, err := h.forwards.Ingest(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ProcessPending runs one extraction sweep on demand.
func (h *AdminHandler) ProcessPending(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sweep": result})
}
