package ledger

import (
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

type sample struct {
	id, desc string
	amount   float64
	date     string
}

var (
	bankSamples = []sample{
		{"1", "SBUX", 5.75, "2024-03-01"},
		{"2", "Amazon Web Services", 100.00, "2024-03-02"},
		{"3", "Office Depot Purchase", 45.99, "2024-03-03"},
		{"4", "Delta Air", 450.00, "2024-03-04"},
	}
	invoiceSamples = []sample{
		{"101", "Starbucks", 5.75, "2024-03-01"},
		{"102", "AWS Invoice", 100.00, "2024-03-02"},
		{"103", "Office Depot", 45.99, "2024-03-03"},
		{"104", "Delta Airlines", 450.00, "2024-03-04"},
	}
	// uncategorized card spend used to demo categorization
	categorizeSamples = []sample{
		{"tx-1", "Starbucks", 5.99, "2024-03-15"},
		{"tx-2", "AWS Invoice", 89.99, "2024-03-14"},
		{"tx-3", "Office Supplies", 45.50, "2024-03-13"},
		{"tx-4", "Client Dinner", 120.00, "2024-03-12"},
	}
)

// SeedSamples loads the demo bank feed and invoices into b.
func SeedSamples(b *Book) error {
	if err := seed(b.Ledger, bankSamples); err != nil {
		return err
	}
	if err := seed(b.Ledger, categorizeSamples); err != nil {
		return err
	}
	return seed(b.Documents, invoiceSamples)
}

func seed(l *Ledger, samples []sample) error {
	for _, s := range samples {
		tx, err := entity.NewTransaction(s.id, s.desc, s.amount, s.date)
		if err != nil {
			return err
		}
		if err := l.Add(tx); err != nil {
			return err
		}
	}
	return nil
}
