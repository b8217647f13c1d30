// Package pipeline runs OCR, normalization and field extraction for one file
// and records the result in the document store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/lock"
	"github.com/joseph-ayodele/receipts-reconciler/internal/store"
)

// Processor coordinates OCR (text extract) then field parsing.
type Processor struct {
	Logger *slog.Logger
	OCR    *OCRStage
	Parse  *ParseStage
	Store  *store.Store

	locker  lock.Locker
	now     func() time.Time
	timeout time.Duration
}

// DefaultTimeout bounds a run when no WithTimeout option is given.
const DefaultTimeout = 3 * time.Minute

type Option func(*Processor)

// WithLocker replaces the in-process retry lock.
func WithLocker(l lock.Locker) Option {
	return func(p *Processor) {
		if l != nil {
			p.locker = l
		}
	}
}

// WithClock injects the source of the default document date.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTimeout bounds one pipeline run, OCR and parse together. Zero leaves
// the caller's deadline alone.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage, st *store.Store, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		Logger: logger,
		OCR:    ocr,
		Parse:  parse,
		Store:  st,
		locker:  lock.NewLocal(),
		now:     time.Now,
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs the whole pipeline for path and adds the document to the
// store. On failure nothing is stored.
func (p *Processor) Process(ctx context.Context, path string) (entity.Document, error) {
	if !constants.IsAccepted(path) {
		return entity.Document{}, common.NewAppError(common.CodeValidation,
			fmt.Sprintf("unsupported file %q: only images and PDFs are accepted", path), common.ErrUnsupportedFile)
	}
	src, err := entity.NewSourceFile(path)
	if err != nil {
		return entity.Document{}, common.ExtractionFailure("reading source file", err)
	}

	doc, err := p.run(ctx, src)
	if err != nil {
		return entity.Document{}, err
	}
	return p.Store.Add(doc)
}

// Retry replaces the document id with a fresh extraction of the same source
// file. Retries of one id are serialized; a caller that loses the race sees
// ErrNotFound because the entry it named is already gone. When the re-run
// fails, the old entry stays removed.
func (p *Processor) Retry(ctx context.Context, id string) (entity.Document, error) {
	release, err := p.locker.Acquire(ctx, "retry:"+id)
	if err != nil {
		return entity.Document{}, common.TimeoutError("waiting for retry lock", err)
	}
	defer release()

	old, ok := p.Store.Get(id)
	if !ok {
		return entity.Document{}, common.NotFoundError(fmt.Sprintf("document %s not found", id))
	}
	p.Store.Remove(id)
	p.Logger.Info("pipeline.retry.start", "doc_id", id, "file", old.Source.Name)

	src, err := entity.NewSourceFile(old.Source.Path)
	if err != nil {
		p.Logger.Error("pipeline.retry.failed", "doc_id", id, "err", err)
		return entity.Document{}, common.ExtractionFailure("reading source file", err)
	}
	doc, err := p.run(ctx, src)
	if err != nil {
		p.Logger.Error("pipeline.retry.failed", "doc_id", id, "err", err)
		return entity.Document{}, err
	}
	doc, err = p.Store.Add(doc)
	if err != nil {
		return entity.Document{}, err
	}
	p.Logger.Info("pipeline.retry.ok", "old_id", id, "doc_id", doc.ID)
	return doc, nil
}

func (p *Processor) run(ctx context.Context, src entity.SourceFile) (entity.Document, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// 1) OCR stage
	ocrRes, err := p.OCR.Run(ctx, src)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = common.TimeoutError("ocr of "+src.Name, err)
		}
		p.Logger.Error("pipeline.ocr.failed", "file", src.Name, "err", err)
		return entity.Document{}, err
	}
	p.Logger.Info("pipeline.ocr.ok",
		"file", src.Name,
		"method", ocrRes.Method,
		"pages", ocrRes.Pages,
		"confidence", ocrRes.Confidence,
	)

	// 2) parse stage
	now := p.now()
	fields, err := p.Parse.Run(ctx, src, ocrRes, entity.DateOnly(now))
	if err != nil {
		p.Logger.Error("pipeline.parse.failed", "file", src.Name, "err", err, "kind", common.Kind(err))
		return entity.Document{}, err
	}

	doc := entity.Document{
		Vendor:      fields.Vendor,
		Amount:      fields.Amount.Abs(),
		Date:        entity.DateOnly(fields.Date),
		RawText:     ocrRes.Text,
		LineItems:   fields.LineItems,
		Source:      src,
		Strategy:    p.Parse.Strategy.Name(),
		ExtractedAt: now.UTC(),
	}
	if doc.Vendor == "" {
		doc.Vendor = entity.UnknownVendor
	}
	if fields.Date.IsZero() {
		doc.Date = entity.DateOnly(now)
	}
	p.Logger.Info("pipeline.parse.ok",
		"file", src.Name,
		"vendor", doc.Vendor,
		"amount", doc.Amount.StringFixed(2),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}
