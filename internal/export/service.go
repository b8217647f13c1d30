// Package export writes documents, reconciliation state and the summary to
// an XLSX workbook.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/reports"
)

const (
	SheetDocuments      = "Documents"
	SheetReconciliation = "Reconciliation"
	SheetSummary        = "Summary"
)

// Input is everything one workbook shows.
type Input struct {
	Documents []entity.Document
	Ledger    []entity.Transaction
	Invoices  []entity.Transaction
	Summary   reports.Summary
}

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WorkbookXLSX returns the workbook as bytes.
func (s *Service) WorkbookXLSX(in Input) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetReconciliation, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	if err := writeDocuments(f, in.Documents); err != nil {
		return nil, err
	}
	if err := writeReconciliation(f, in.Ledger, in.Invoices); err != nil {
		return nil, err
	}
	if err := writeSummary(f, in.Summary); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(SheetDocuments)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(in.Documents),
		"transactions", len(in.Ledger)+len(in.Invoices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// sheetWriter fills one sheet row by row.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) write(values ...any) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

func writeDocuments(f *excelize.File, docs []entity.Document) error {
	w := &sheetWriter{f: f, sheet: SheetDocuments}
	w.write("ID", "Date", "Vendor", "Amount", "Items", "Strategy", "File", "Extracted At")
	for _, d := range docs {
		w.write(
			d.ID,
			d.Date.Format(entity.DateLayout),
			d.Vendor,
			d.Amount.InexactFloat64(),
			len(d.LineItems),
			d.Strategy,
			d.Source.Name,
			d.ExtractedAt.UTC().Format(time.RFC3339),
		)
	}
	if w.err != nil {
		return fmt.Errorf("documents sheet: %w", w.err)
	}
	_ = f.SetColWidth(SheetDocuments, "A", "A", 38) // id
	_ = f.SetColWidth(SheetDocuments, "B", "B", 12) // date
	_ = f.SetColWidth(SheetDocuments, "C", "C", 28) // vendor
	_ = f.SetColWidth(SheetDocuments, "G", "G", 40) // file
	return nil
}

func writeReconciliation(f *excelize.File, ledger, invoices []entity.Transaction) error {
	w := &sheetWriter{f: f, sheet: SheetReconciliation}
	w.write("Side", "ID", "Date", "Description", "Amount", "Category", "Matched")
	for _, group := range []struct {
		side constants.Side
		txs  []entity.Transaction
	}{{constants.SideLedger, ledger}, {constants.SideDocuments, invoices}} {
		for _, tx := range group.txs {
			w.write(
				string(group.side),
				tx.ID,
				tx.Date.Format(entity.DateLayout),
				tx.Description,
				tx.Amount.InexactFloat64(),
				tx.Category,
				tx.Matched,
			)
		}
	}
	if w.err != nil {
		return fmt.Errorf("reconciliation sheet: %w", w.err)
	}
	_ = f.SetColWidth(SheetReconciliation, "D", "D", 32)
	return nil
}

func writeSummary(f *excelize.File, s reports.Summary) error {
	w := &sheetWriter{f: f, sheet: SheetSummary}
	w.write("Month", "Income", "Expenses")
	for _, m := range s.Months {
		w.write(m.Month, m.Income.InexactFloat64(), m.Expenses.InexactFloat64())
	}
	w.write()
	w.write("Category", "Expenses", "Count")
	for _, c := range s.ByCategory {
		w.write(c.Category, c.Total.InexactFloat64(), c.Count)
	}
	w.write()
	w.write("Side", "Total", "Matched", "Unmatched")
	w.write(string(constants.SideLedger), s.Ledger.Total, s.Ledger.Matched, s.Ledger.Unmatched)
	w.write(string(constants.SideDocuments), s.Documents.Total, s.Documents.Matched, s.Documents.Unmatched)
	if w.err != nil {
		return fmt.Errorf("summary sheet: %w", w.err)
	}
	return nil
}
