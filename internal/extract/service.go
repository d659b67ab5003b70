package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// VisionModel is a generative-vision backend returning a JSON-shaped payload
// for one receipt image.
type VisionModel interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (string, error)
}

// TextDetector is a classic OCR backend returning a plain text blob.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Service picks the configured backend and normalizes its response. When no
// backend is configured it returns a safe all-defaults record rather than
// erroring; when a backend is configured but fails, the error surfaces so the
// caller can mark the receipt FAILED.
type Service struct {
	logger *slog.Logger
	vision VisionModel
	ocr    TextDetector
}

func NewService(vision VisionModel, ocr TextDetector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, vision: vision, ocr: ocr}
}

// Extract runs one image through the configured backend.
func (s *Service) Extract(ctx context.Context, image []byte, mimeType string) (ExtractedData, error) {
	start := time.Now()

	switch {
	case s.vision != nil:
		raw, err := s.vision.ExtractReceipt(ctx, image, mimeType)
		if err != nil {
			s.logger.Error("extract.vision.backend_error", "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return ExtractedData{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		data, err := FromModelJSON(raw, s.logger)
		if err != nil {
			s.logger.Error("extract.vision.unparsable", "error", err, "raw_bytes", len(raw))
			return ExtractedData{}, err
		}
		s.logger.Info("extract.vision.ok",
			"merchant", data.Merchant,
			"total", data.Total,
			"items", len(data.Items),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return data, nil

	case s.ocr != nil:
		text, err := s.ocr.DetectText(ctx, image, mimeType)
		if err != nil {
			s.logger.Error("extract.ocr.backend_error", "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return ExtractedData{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		data := FromText(text)
		s.logger.Info("extract.ocr.ok",
			"merchant", data.Merchant,
			"total", data.Total,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return data, nil

	default:
		s.logger.Warn("extract.no_backend_configured")
		return Defaults(), nil
	}
}
