package server

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/pipeline"
	"github.com/receiptvault/receiptvault/internal/repository"
	"github.com/receiptvault/receiptvault/internal/service"
)

// maxUploadBytes bounds receipt image uploads (10 MB).
const maxUploadBytes = 10 << 20

// ReceiptHandler handles receipt requests.
type ReceiptHandler struct {
	logger    *slog.Logger
	receipts  *service.ReceiptService
	processor *pipeline.Processor
}

func NewReceiptHandler(receipts *service.ReceiptService, processor *pipeline.Processor, logger *slog.Logger) *ReceiptHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptHandler{logger: logger, receipts: receipts, processor: processor}
}

// Upload accepts a multipart form with the receipt image under "file" and
// optional user-entered fields alongside it.
func (h *ReceiptHandler) Upload(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "file field is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondWithError(c, h.logger, apperr.Wrap(apperr.ErrUploadFailed, err))
		return
	}
	if len(data) > maxUploadBytes {
		respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "file exceeds the 10MB limit"))
		return
	}

	params := service.UploadParams{
		Filename: header.Filename,
		Data:     data,
		Merchant: c.PostForm("merchant"),
		Notes:    c.PostForm("notes"),
	}
	if v := c.PostForm("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "date must be YYYY-MM-DD"))
			return
		}
		params.Date = &d
	}
	if v := c.PostForm("total"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "total must be a non-negative number"))
			return
		}
		params.Total = &t
	}
	if v := c.PostForm("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				params.Tags = append(params.Tags, tag)
			}
		}
	}

	result, err := h.receipts.Upload(c.Request.Context(), userID, params)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List returns the user's receipts with filtering and pagination.
func (h *ReceiptHandler) List(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	filter := repository.ListFilter{
		Merchant:   c.Query("merchant"),
		CategoryID: c.Query("categoryId"),
		Tag:        c.Query("tag"),
	}
	if v := c.Query("startDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "startDate must be YYYY-MM-DD"))
			return
		}
		filter.StartDate = &d
	}
	if v := c.Query("endDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "endDate must be YYYY-MM-DD"))
			return
		}
		end := d.AddDate(0, 0, 1)
		filter.EndDate = &end
	}
	if v := c.Query("minAmount"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinAmount = &f
		}
	}
	if v := c.Query("maxAmount"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxAmount = &f
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	receipts, total, err := h.receipts.List(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receipts": receipts,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	})
}

// Get returns one receipt owned by the caller.
func (h *ReceiptHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	rec, err := h.receipts.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": rec})
}

// Update applies a partial edit to a receipt.
func (h *ReceiptHandler) Update(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	var params service.UpdateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, err.Error()))
		return
	}
	rec, err := h.receipts.Update(c.Request.Context(), userID, c.Param("id"), params)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": rec})
}

// Delete removes a receipt.
func (h *ReceiptHandler) Delete(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	if err := h.receipts.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Process runs extraction synchronously for one receipt. Reprocessing a
// FAILED receipt is allowed; an in-flight or completed one returns 409.
func (h *ReceiptHandler) Process(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	id := c.Param("id")
	// ownership check before touching the shared pipeline
	if _, err := h.receipts.Get(c.Request.Context(), userID, id); err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	if err := h.processor.Process(c.Request.Context(), id); err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	rec, err := h.receipts.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": rec})
}

// Warranties lists receipts with warranties expiring inside the window
// given by the "days" query parameter.
func (h *ReceiptHandler) Warranties(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 {
		respondWithError(c, h.logger, apperr.WithMessage(apperr.ErrInvalidInput, "days must be positive"))
		return
	}
	receipts, err := h.receipts.ExpiringWarranties(c.Request.Context(), userID, time.Duration(days)*24*time.Hour)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts, "days": days})
}
