package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// SaveSide replaces everything stored for side with txs, keeping order.
func (d *DB) SaveSide(ctx context.Context, side constants.Side, txs []entity.Transaction) error {
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM transactions WHERE side = ?`), string(side)); err != nil {
			return fmt.Errorf("clear %s: %w", side, err)
		}
		stmt, err := tx.PrepareContext(ctx, d.rebind(`INSERT INTO transactions
			(side, id, position, description, amount, tx_date, category, matched)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, t := range txs {
			if _, err := stmt.ExecContext(ctx,
				string(side), t.ID, i, t.Description, t.Amount.String(),
				t.Date.Format(entity.DateLayout), t.Category, t.Matched,
			); err != nil {
				return fmt.Errorf("insert %s %s: %w", side, t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		d.logger.Error("repository.save_side.failed", "side", side, "error", err)
		return err
	}
	d.logger.Info("repository.save_side", "side", side, "count", len(txs))
	return nil
}

// LoadSide returns the stored transactions of side in saved order.
func (d *DB) LoadSide(ctx context.Context, side constants.Side) ([]entity.Transaction, error) {
	rows, err := d.sql.QueryContext(ctx, d.rebind(`SELECT id, description, amount, tx_date, category, matched
		FROM transactions WHERE side = ? ORDER BY position`), string(side))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", side, err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Transaction
	for rows.Next() {
		var (
			t            entity.Transaction
			amount, date string
		)
		if err := rows.Scan(&t.ID, &t.Description, &amount, &date, &t.Category, &t.Matched); err != nil {
			return nil, fmt.Errorf("scan %s: %w", side, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%s %s amount: %w", side, t.ID, err)
		}
		if t.Date, err = entity.ParseDate(date); err != nil {
			return nil, fmt.Errorf("%s %s: %w", side, t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
