package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/normalize"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <receipt.png|receipt.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig("")
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	o := cfg.OCR
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     o.Pdftotext,
		Pdftoppm:      o.Pdftoppm,
		Tesseract:     o.Tesseract,
		TesseractLang: o.TesseractLang,
		TessdataDir:   o.TessdataDir,
		DPI:           o.DPI,
		MaxPages:      o.MaxPages,
	}, logger)

	start := time.Now()
	res, err := extractor.Extract(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"warnings", len(res.Warnings),
		"duration_ms", dur.Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"method":     res.Method,
		"confidence": res.Confidence,
		"warnings":   res.Warnings,
		"lines":      normalize.Lines(res.Text),
	})
}
