package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction is one monetary record on either side of a reconciliation.
// ID is only unique within its collection.
type Transaction struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"-"`
	Category    string          `json:"category,omitempty"`
	Matched     bool            `json:"matched"`
}

type transactionJSON Transaction

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		transactionJSON
		Date string `json:"date"`
	}{transactionJSON(t), t.Date.Format(DateLayout)})
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	var aux struct {
		transactionJSON
		Date string `json:"date"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*t = Transaction(aux.transactionJSON)
	if aux.Date == "" {
		return nil
	}
	date, err := ParseDate(aux.Date)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	t.Date = date
	return nil
}

// NewTransaction builds a transaction from loosely typed input, rejecting
// non-finite amounts and unparseable dates.
func NewTransaction(id, description string, amount float64, date string) (Transaction, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Transaction{}, fmt.Errorf("%w: non-finite amount for %q", ErrInvalidTransaction, id)
	}
	d, err := ParseDate(strings.TrimSpace(date))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	tx := Transaction{
		ID:          id,
		Description: description,
		Amount:      decimal.NewFromFloat(amount),
		Date:        d,
	}
	return tx, tx.Validate()
}

// Validate reports whether t can take part in matching.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: %q has no date", ErrInvalidTransaction, t.ID)
	}
	return nil
}

// Uncategorized reports whether no category has been assigned yet.
func (t Transaction) Uncategorized() bool {
	return strings.TrimSpace(t.Category) == ""
}
