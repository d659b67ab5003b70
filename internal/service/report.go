package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/receiptvault/receiptvault/internal/entity"
	"github.com/receiptvault/receiptvault/internal/insights"
	"github.com/receiptvault/receiptvault/internal/report"
	"github.com/receiptvault/receiptvault/internal/repository"
)

// ReportService builds spending reports and insights from stored receipts.
type ReportService struct {
	logger   *slog.Logger
	receipts repository.ReceiptRepository
	insights *insights.Service
}

func NewReportService(receipts repository.ReceiptRepository, ins *insights.Service, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{logger: logger, receipts: receipts, insights: ins}
}

func (s *ReportService) load(ctx context.Context, userID string, p report.Period) ([]entity.Receipt, error) {
	return s.receipts.ListForRange(ctx, userID, &p.Start, &p.End)
}

// Build aggregates the user's receipts over the period.
func (s *ReportService) Build(ctx context.Context, userID string, p report.Period) (*report.Report, error) {
	receipts, err := s.load(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	r := report.Build(p, receipts)
	s.logger.Info("report.built",
		"user_id", userID,
		"period", string(p.Type),
		"receipts", r.Summary.ReceiptCount)
	return r, nil
}

// Export writes the period's report as an XLSX workbook and returns the
// suggested filename.
func (s *ReportService) Export(ctx context.Context, userID string, p report.Period, w io.Writer) (string, error) {
	receipts, err := s.load(ctx, userID, p)
	if err != nil {
		return "", err
	}
	r := report.Build(p, receipts)
	if err := report.WriteXLSX(w, r, receipts); err != nil {
		return "", err
	}
	name := report.ExportFilename(p, time.Now())
	s.logger.Info("report.exported", "user_id", userID, "filename", name)
	return name, nil
}

// insightsWindow is how far back spending insights look.
const insightsWindow = 6 * 30 * 24 * time.Hour

// Insights computes spending insights over the trailing six months.
func (s *ReportService) Insights(ctx context.Context, userID string) (*insights.Insights, error) {
	from := time.Now().Add(-insightsWindow)
	receipts, err := s.receipts.ListForRange(ctx, userID, &from, nil)
	if err != nil {
		return nil, err
	}
	return s.insights.Generate(ctx, receipts), nil
}
