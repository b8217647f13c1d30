// Package ledger keeps the two transaction collections that reconciliation
// compares: the bank feed and the document side.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

var ErrDuplicateID = errors.New("transaction id already present")

// Ledger is one mutex-guarded collection. IDs are unique within it only.
type Ledger struct {
	side   constants.Side
	mu     sync.RWMutex
	txs    []entity.Transaction
	index  map[string]int
	logger *slog.Logger
}

func New(side constants.Side, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{side: side, index: make(map[string]int), logger: logger}
}

func (l *Ledger) Side() constants.Side { return l.side }

// Add validates and appends tx.
func (l *Ledger) Add(tx entity.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.index[tx.ID]; dup {
		return fmt.Errorf("%s %q: %w", l.side, tx.ID, ErrDuplicateID)
	}
	l.index[tx.ID] = len(l.txs)
	l.txs = append(l.txs, tx)
	l.logger.Debug("ledger.add", "side", l.side, "tx_id", tx.ID)
	return nil
}

// Replace swaps the whole collection, e.g. after loading from storage.
func (l *Ledger) Replace(txs []entity.Transaction) error {
	index := make(map[string]int, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
		if _, dup := index[tx.ID]; dup {
			return fmt.Errorf("%s %q: %w", l.side, tx.ID, ErrDuplicateID)
		}
		index[tx.ID] = i
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append([]entity.Transaction(nil), txs...)
	l.index = index
	return nil
}

// List returns a copy in insertion order.
func (l *Ledger) List() []entity.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]entity.Transaction(nil), l.txs...)
}

func (l *Ledger) Get(id string) (entity.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return entity.Transaction{}, false
	}
	return l.txs[i], true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}

// Uncategorized returns the transactions still lacking a category.
func (l *Ledger) Uncategorized() []entity.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []entity.Transaction
	for _, tx := range l.txs {
		if tx.Uncategorized() {
			out = append(out, tx)
		}
	}
	return out
}

// SetCategory changes only the category of id.
func (l *Ledger) SetCategory(id, category string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return common.NotFoundError(fmt.Sprintf("%s transaction %s not found", l.side, id))
	}
	l.txs[i].Category = strings.TrimSpace(category)
	return nil
}

// Mark sets the matched flag on ids. It never clears a flag; unknown ids
// are ignored.
func (l *Ledger) Mark(ids ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, id := range ids {
		if i, ok := l.index[id]; ok && !l.txs[i].Matched {
			l.txs[i].Matched = true
			n++
		}
	}
	return n
}

// Book holds both sides.
type Book struct {
	Ledger    *Ledger
	Documents *Ledger
}

func NewBook(logger *slog.Logger) *Book {
	return &Book{
		Ledger:    New(constants.SideLedger, logger),
		Documents: New(constants.SideDocuments, logger),
	}
}

// Side returns the named collection or a validation error.
func (b *Book) Side(side constants.Side) (*Ledger, error) {
	switch side {
	case constants.SideLedger:
		return b.Ledger, nil
	case constants.SideDocuments:
		return b.Documents, nil
	default:
		return nil, common.NewAppError(common.CodeValidation, fmt.Sprintf("unknown side %q", side), common.ErrInvalidInput)
	}
}

// FromDocument turns an extracted document into a document-side transaction.
func FromDocument(doc entity.Document) entity.Transaction {
	return entity.Transaction{
		ID:          doc.ID,
		Description: doc.Vendor,
		Amount:      doc.Amount,
		Date:        doc.Date,
	}
}
