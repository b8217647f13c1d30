package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ocr"
)

// OCRAdapter exposes ocr.Extractor as a TextExtractor and classifies its
// failures as extraction failures.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, path)
	res := TextExtractionResult{
		Text:       r.Text,
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
		Confidence: r.Confidence,
	}
	if err == nil {
		return res, nil
	}
	if errors.Is(err, common.ErrUnsupportedFile) {
		return res, err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return res, common.TimeoutError("ocr timed out", err)
	}
	a.logger.Warn("extract.ocr.failed", "path", path, "error", err, "warnings", len(r.Warnings))
	return res, common.ExtractionFailure("ocr failed", err)
}
