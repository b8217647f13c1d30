package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/extract"
	"github.com/joseph-ayodele/receipts-reconciler/internal/normalize"
)

// ParseStage normalizes OCR text and hands it to the configured strategy.
type ParseStage struct {
	Strategy extract.Strategy
	Logger   *slog.Logger
}

func NewParseStage(strategy extract.Strategy, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Strategy: strategy, Logger: logger}
}

// Run extracts fields from the OCR output of src. today is the fallback date.
func (s *ParseStage) Run(ctx context.Context, src entity.SourceFile, ocr extract.TextExtractionResult, today time.Time) (extract.Fields, error) {
	lines := normalize.Lines(ocr.Text)
	start := time.Now()
	fields, err := s.Strategy.Extract(ctx, extract.Request{
		Lines:         lines,
		Text:          normalize.Text(ocr.Text),
		DefaultDate:   today,
		SourcePath:    src.Path,
		OCRConfidence: ocr.Confidence,
	})
	if err != nil {
		return extract.Fields{}, err
	}
	s.Logger.Debug("pipeline.parse.ok",
		"strategy", s.Strategy.Name(),
		"lines", len(lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, nil
}
