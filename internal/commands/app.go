package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/categorize"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/extract"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm/gemini"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm/openai"
	"github.com/joseph-ayodele/receipts-reconciler/internal/lock"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ocr"
	"github.com/joseph-ayodele/receipts-reconciler/internal/pipeline"
	"github.com/joseph-ayodele/receipts-reconciler/internal/repository"
	"github.com/joseph-ayodele/receipts-reconciler/internal/store"
)

// app carries the loaded configuration and builds components from it.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
}

func newApp(configPath string, out io.Writer, jsonLogs bool) (*app, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(out, cfg.LogLevel, jsonLogs)
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func newLogger(out io.Writer, level string, json bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// completer returns the configured provider, or nil when no API key is set.
func (a *app) completer(ctx context.Context) (llm.Completer, error) {
	c := a.cfg.LLM
	if c.APIKey == "" {
		return nil, nil
	}
	switch c.Provider {
	case common.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
			Timeout:     c.Timeout,
		}, a.logger)
	default:
		return openai.NewClient(openai.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			MaxTokens:   c.MaxTokens,
			Timeout:     c.Timeout,
		}, a.logger), nil
	}
}

// processor wires OCR, the extraction strategy and st into a pipeline.
func (a *app) processor(ctx context.Context, st *store.Store, locker lock.Locker) (*pipeline.Processor, error) {
	completer, err := a.completer(ctx)
	if err != nil {
		return nil, err
	}
	mode := a.cfg.ExtractionMode()
	strategy, err := extract.New(mode, extract.HeuristicConfig{
		Brands:          a.cfg.Extraction.Brands,
		VendorHeadLines: a.cfg.Extraction.VendorHeadLines,
		AmountWindow:    a.cfg.Extraction.AmountWindow,
		DayFirst:        a.cfg.Extraction.DayFirst,
	}, completer, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("extract.strategy", "mode", mode, "name", strategy.Name())

	o := a.cfg.OCR
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     o.Pdftotext,
		Pdftoppm:      o.Pdftoppm,
		Tesseract:     o.Tesseract,
		TesseractLang: o.TesseractLang,
		TessdataDir:   o.TessdataDir,
		DPI:           o.DPI,
		MaxPages:      o.MaxPages,
	}, a.logger)

	opts := []pipeline.Option{pipeline.WithTimeout(a.cfg.Queue.Timeout)}
	if locker != nil {
		opts = append(opts, pipeline.WithLocker(locker))
	}
	return pipeline.NewProcessor(a.logger,
		pipeline.NewOCRStage(extract.NewOCRAdapter(extractor, a.logger), a.logger),
		pipeline.NewParseStage(strategy, a.logger),
		st, opts...,
	), nil
}

func (a *app) categorizer(ctx context.Context) (*categorize.Categorizer, error) {
	completer, err := a.completer(ctx)
	if err != nil {
		return nil, err
	}
	mode := a.cfg.CategorizeMode()
	classifier, err := categorize.NewClassifier(mode, a.cfg.Categorize.RulesFile, completer, a.logger)
	if err != nil {
		return nil, err
	}
	return categorize.New(classifier, a.logger,
		categorize.WithConcurrency(a.cfg.Categorize.Concurrency),
		categorize.WithTimeout(a.cfg.Categorize.Timeout),
	), nil
}

// locker prefers Redis when an address is configured. The returned close
// func is never nil.
func (a *app) locker(ctx context.Context) (lock.Locker, func(), error) {
	r := a.cfg.Redis
	if r.Addr == "" {
		return lock.NewLocal(), func() {}, nil
	}
	l, rdb, err := lock.NewRedis(ctx, lock.RedisOptions{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		TTL:      r.LockTTL,
	}, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = rdb.Close() }, nil
}

func (a *app) openDB(ctx context.Context) (*repository.DB, error) {
	db, err := repository.Open(ctx, repository.Config{
		DSN:         a.cfg.Database.DSN,
		MaxConns:    a.cfg.Database.MaxConns,
		DialTimeout: a.cfg.Database.DialTimeout,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// state is everything the commands persist between runs.
type state struct {
	docs *store.Store
	book *ledger.Book
}

func (a *app) loadState(ctx context.Context, db *repository.DB) (*state, error) {
	st := &state{docs: store.New(a.logger), book: ledger.NewBook(a.logger)}

	for _, l := range []*ledger.Ledger{st.book.Ledger, st.book.Documents} {
		txs, err := db.LoadSide(ctx, l.Side())
		if err != nil {
			return nil, err
		}
		if err := l.Replace(txs); err != nil {
			return nil, fmt.Errorf("restore %s: %w", l.Side(), err)
		}
	}

	docs, err := db.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if _, err := st.docs.Add(d); err != nil {
			return nil, fmt.Errorf("restore document %s: %w", d.ID, err)
		}
	}
	a.logger.Info("state.loaded",
		"ledger", st.book.Ledger.Len(),
		"documents", st.book.Documents.Len(),
		"extracted", st.docs.Len(),
	)
	return st, nil
}

func (a *app) saveState(ctx context.Context, db *repository.DB, st *state) error {
	if err := db.SaveSide(ctx, constants.SideLedger, st.book.Ledger.List()); err != nil {
		return err
	}
	if err := db.SaveSide(ctx, constants.SideDocuments, st.book.Documents.List()); err != nil {
		return err
	}
	return db.SaveDocuments(ctx, st.docs.List())
}
