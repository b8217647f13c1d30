// Package extract recovers vendor, amount, date and line items from
// normalized document text.
package extract

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "IMAGE"
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Request is the input to a field extraction strategy.
type Request struct {
	Lines []string
	// Text is the text sent to an external service; strategies fall back to
	// joining Lines when it is empty.
	Text string
	// DefaultDate is used when no date can be recovered.
	DefaultDate time.Time
	// SourcePath and OCRConfidence let a service strategy send the image
	// itself when the OCR text is unreliable.
	SourcePath    string
	OCRConfidence float32
}

// Fields is a complete extraction result.
type Fields struct {
	Vendor    string
	Amount    decimal.Decimal
	Date      time.Time
	LineItems []entity.LineItem
}

// Strategy is Stage 2: text -> fields. Exactly one strategy is chosen when
// the pipeline is built.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, req Request) (Fields, error)
}
