package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/export"
	"github.com/joseph-ayodele/receipts-reconciler/internal/importer"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ingest"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
	"github.com/joseph-ayodele/receipts-reconciler/internal/reconcile"
	"github.com/joseph-ayodele/receipts-reconciler/internal/reports"
	"github.com/joseph-ayodele/receipts-reconciler/internal/repository"
)

// withState opens the database, loads the state, runs fn and saves the state
// back when fn succeeds and save is set.
func withState(ctx context.Context, a *app, save bool, fn func(st *state) error) error {
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := a.loadState(ctx, db)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return a.saveState(ctx, db, st)
}

type extractOutcome struct {
	Path      string           `json:"path"`
	Document  *entity.Document `json:"document,omitempty"`
	Code      string           `json:"code,omitempty"`
	Title     string           `json:"title,omitempty"`
	Error     string           `json:"error,omitempty"`
	Retryable bool             `json:"retryable,omitempty"`
}

func newExtractCommand(flags *rootFlags) *cobra.Command {
	var promote, skipHidden bool
	var xlsxOut string

	cmd := &cobra.Command{
		Use:   "extract <file|dir>...",
		Short: "Run the extraction pipeline over files and print the documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := batchApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var paths []string
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					paths = append(paths, arg)
					continue
				}
				found, stats, err := ingest.Walk(arg, skipHidden)
				if err != nil {
					return err
				}
				a.logger.Info("extract.walk", "root", arg, "scanned", stats.Scanned, "matched", stats.Matched)
				paths = append(paths, found...)
			}

			return withState(ctx, a, true, func(st *state) error {
				proc, err := a.processor(ctx, st.docs, nil)
				if err != nil {
					return err
				}
				outcomes := make([]extractOutcome, 0, len(paths))
				failed := 0
				for _, p := range paths {
					doc, err := proc.Process(ctx, p)
					if err != nil {
						failed++
						outcomes = append(outcomes, extractOutcome{
							Path:      p,
							Code:      common.Kind(err),
							Title:     common.Title(err),
							Error:     err.Error(),
							Retryable: common.IsRetryable(err),
						})
						continue
					}
					if promote {
						if err := st.book.Documents.Add(ledger.FromDocument(doc)); err != nil {
							return err
						}
					}
					outcomes = append(outcomes, extractOutcome{Path: p, Document: &doc})
				}
				if xlsxOut != "" {
					if err := writeWorkbook(a, st, xlsxOut); err != nil {
						return err
					}
				}
				if err := writeJSON(cmd.OutOrStdout(), outcomes); err != nil {
					return err
				}
				if failed > 0 {
					a.logger.Warn("extract.partial", "failed", failed, "total", len(paths))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&promote, "promote", false, "add each extracted document to the documents ledger")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories when walking")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "also write the workbook to this path")
	return cmd
}

func newImportCommand(flags *rootFlags) *cobra.Command {
	var side string
	csvCfg := importer.DefaultCSVConfig()

	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Import transactions from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := batchApp(cmd, flags)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			txs, err := importer.NewCSVParser(csvCfg).Parse(f)
			if err != nil {
				return err
			}
			return withState(cmd.Context(), a, true, func(st *state) error {
				l, err := st.book.Side(constants.Side(side))
				if err != nil {
					return err
				}
				for _, tx := range txs {
					if err := l.Add(tx); err != nil {
						return err
					}
				}
				a.logger.Info("import.done", "file", filepath.Base(args[0]), "side", side, "count", len(txs))
				return writeJSON(cmd.OutOrStdout(), map[string]any{"side": side, "imported": len(txs)})
			})
		},
	}
	cmd.Flags().StringVar(&side, "side", string(constants.SideLedger), "ledger or documents")
	cmd.Flags().StringVar(&csvCfg.DateColumn, "date-col", csvCfg.DateColumn, "date column header")
	cmd.Flags().StringVar(&csvCfg.DescriptionColumn, "desc-col", csvCfg.DescriptionColumn, "description column header")
	cmd.Flags().StringVar(&csvCfg.AmountColumn, "amount-col", csvCfg.AmountColumn, "amount column header")
	cmd.Flags().StringVar(&csvCfg.IDColumn, "id-col", csvCfg.IDColumn, "id column header (row numbers when absent)")
	cmd.Flags().BoolVar(&csvCfg.KeepSign, "keep-sign", false, "keep negative amounts instead of storing magnitudes")
	return cmd
}

func newReconcileCommand(flags *rootFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match the ledger against the documents side and store the flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := batchApp(cmd, flags)
			if err != nil {
				return err
			}
			return withState(cmd.Context(), a, true, func(st *state) error {
				res, err := reconcile.Book(st.book, strict)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "pair each transaction with at most one counterpart")
	return cmd
}

func newCategorizeCommand(flags *rootFlags) *cobra.Command {
	var side, id string
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Assign categories to uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := batchApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := a.categorizer(ctx)
			if err != nil {
				return err
			}
			return withState(ctx, a, true, func(st *state) error {
				l, err := st.book.Side(constants.Side(side))
				if err != nil {
					return err
				}
				if id != "" {
					tx, err := c.CategorizeOne(ctx, l, id)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), tx)
				}
				return writeJSON(cmd.OutOrStdout(), c.CategorizeAll(ctx, l))
			})
		},
	}
	cmd.Flags().StringVar(&side, "side", string(constants.SideLedger), "ledger or documents")
	cmd.Flags().StringVar(&id, "id", "", "categorize only this transaction")
	return cmd
}

func newExportCommand(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write documents, reconciliation and summary to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := batchApp(cmd, flags)
			if err != nil {
				return err
			}
			return withState(cmd.Context(), a, false, func(st *state) error {
				return writeWorkbook(a, st, out)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "reconciliation.xlsx", "output path")
	return cmd
}

func writeWorkbook(a *app, st *state, out string) error {
	ledgerTxs, docTxs := st.book.Ledger.List(), st.book.Documents.List()
	data, err := export.NewService(a.logger).WorkbookXLSX(export.Input{
		Documents: st.docs.List(),
		Ledger:    ledgerTxs,
		Invoices:  docTxs,
		Summary:   reports.Build(ledgerTxs, docTxs, st.docs.Len()),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	a.logger.Info("export.written", "path", out, "bytes", len(data))
	return nil
}

func newSeedCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace both ledgers with the demo sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := batchApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			return seed(ctx, a, db)
		},
	}
}

func seed(ctx context.Context, a *app, db *repository.DB) error {
	book := ledger.NewBook(a.logger)
	if err := ledger.SeedSamples(book); err != nil {
		return err
	}
	if err := db.SaveSide(ctx, constants.SideLedger, book.Ledger.List()); err != nil {
		return err
	}
	if err := db.SaveSide(ctx, constants.SideDocuments, book.Documents.List()); err != nil {
		return err
	}
	a.logger.Info("seed.done", "ledger", book.Ledger.Len(), "documents", book.Documents.Len())
	return nil
}
