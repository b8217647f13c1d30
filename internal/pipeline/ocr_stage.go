package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/extract"
)

type OCRStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewOCRStage(tx extract.TextExtractor, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{TextExtractor: tx, Logger: logger}
}

// Run turns the source file into raw text. The OCR engine is opaque here.
func (s *OCRStage) Run(ctx context.Context, src entity.SourceFile) (extract.TextExtractionResult, error) {
	res, err := s.TextExtractor.Extract(ctx, src.Path)
	if err != nil {
		return res, err
	}
	if constants.MapExtToFormat(src.Ext) == constants.IMAGE && res.Confidence > 0 && res.Confidence < constants.ImageConfidenceThreshold {
		s.Logger.Warn("pipeline.ocr.low_confidence", "file", src.Name, "conf", res.Confidence)
	}
	return res, nil
}
