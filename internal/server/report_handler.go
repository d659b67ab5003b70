package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/receiptvault/receiptvault/internal/apperr"
	"github.com/receiptvault/receiptvault/internal/report"
	"github.com/receiptvault/receiptvault/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles report and insights requests.
type ReportHandler struct {
	logger  *slog.Logger
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{logger: logger, reports: reports}
}

// periodFromQuery resolves the period query parameters shared by the report
// endpoints. Defaults to the current month.
func periodFromQuery(c *gin.Context) (report.Period, error) {
	now := time.Now().UTC()
	pt := report.PeriodType(c.DefaultQuery("period", string(report.PeriodMonthly)))
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))

	var start, end time.Time
	if v := c.Query("startDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return report.Period{}, apperr.WithMessage(apperr.ErrInvalidInput, "startDate must be YYYY-MM-DD")
		}
		start = d
	}
	if v := c.Query("endDate"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return report.Period{}, apperr.WithMessage(apperr.ErrInvalidInput, "endDate must be YYYY-MM-DD")
		}
		end = d.AddDate(0, 0, 1)
	}
	return report.ResolvePeriod(pt, year, month, start, end)
}

// Get builds the spending report for the requested period.
func (h *ReportHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	period, err := periodFromQuery(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	r, err := h.reports.Build(c.Request.Context(), userID, period)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": r})
}

// Export streams the report as an XLSX download.
func (h *ReportHandler) Export(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	period, err := periodFromQuery(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	name, err := h.reports.Export(c.Request.Context(), userID, period, &buf)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Insights returns local spending aggregates plus AI trends when available.
func (h *ReportHandler) Insights(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	ins, err := h.reports.Insights(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": ins})
}
