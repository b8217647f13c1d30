package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// SaveDocuments replaces the stored documents with docs, keeping order.
func (d *DB) SaveDocuments(ctx context.Context, docs []entity.Document) error {
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return fmt.Errorf("clear documents: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, d.rebind(`INSERT INTO documents
			(id, position, vendor, amount, doc_date, raw_text, line_items, source_path,
			 source_name, source_ext, source_size, content_hash, strategy, extracted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, doc := range docs {
			items, err := json.Marshal(doc.LineItems)
			if err != nil {
				return fmt.Errorf("encode line items of %s: %w", doc.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				doc.ID, i, doc.Vendor, doc.Amount.String(), doc.Date.Format(entity.DateLayout),
				doc.RawText, string(items), doc.Source.Path, doc.Source.Name, doc.Source.Ext,
				doc.Source.Size, doc.Source.HashHex(), doc.Strategy, doc.ExtractedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert document %s: %w", doc.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		d.logger.Error("repository.save_documents.failed", "error", err)
		return err
	}
	d.logger.Info("repository.save_documents", "count", len(docs))
	return nil
}

// LoadDocuments returns the stored documents in saved order.
func (d *DB) LoadDocuments(ctx context.Context) ([]entity.Document, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, vendor, amount, doc_date, raw_text, line_items,
		source_path, source_name, source_ext, source_size, content_hash, strategy, extracted_at
		FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Document
	for rows.Next() {
		var (
			doc                              entity.Document
			amount, date, items, hash, stamp string
		)
		if err := rows.Scan(&doc.ID, &doc.Vendor, &amount, &date, &doc.RawText, &items,
			&doc.Source.Path, &doc.Source.Name, &doc.Source.Ext, &doc.Source.Size,
			&hash, &doc.Strategy, &stamp); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if doc.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("document %s amount: %w", doc.ID, err)
		}
		if doc.Date, err = entity.ParseDate(date); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if err := json.Unmarshal([]byte(items), &doc.LineItems); err != nil {
			return nil, fmt.Errorf("document %s line items: %w", doc.ID, err)
		}
		if doc.Source.ContentHash, err = hex.DecodeString(hash); err != nil {
			return nil, fmt.Errorf("document %s hash: %w", doc.ID, err)
		}
		if doc.ExtractedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("document %s timestamp: %w", doc.ID, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
