// Package reports aggregates transactions for the summary views.
package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// IncomeCategory marks transactions counted as income; everything else is
// an expense.
const IncomeCategory = "Income"

type MonthTotal struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type SideStatus struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

type Summary struct {
	Months     []MonthTotal    `json:"months"`
	ByCategory []CategoryTotal `json:"by_category"`
	Ledger     SideStatus      `json:"ledger"`
	Documents  SideStatus      `json:"documents"`
	Extracted  int             `json:"extracted"`
}

// Build summarizes the ledger side by month and category, and counts
// reconciliation status on both sides.
func Build(ledgerTxs, documentTxs []entity.Transaction, extracted int) Summary {
	return Summary{
		Months:     Monthly(ledgerTxs),
		ByCategory: ExpensesByCategory(ledgerTxs),
		Ledger:     status(ledgerTxs),
		Documents:  status(documentTxs),
		Extracted:  extracted,
	}
}

// Monthly returns income and expenses per calendar month, oldest first.
func Monthly(txs []entity.Transaction) []MonthTotal {
	byMonth := map[string]*MonthTotal{}
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthTotal{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			byMonth[key] = m
		}
		if isIncome(tx) {
			m.Income = m.Income.Add(tx.Amount.Abs())
		} else {
			m.Expenses = m.Expenses.Add(tx.Amount.Abs())
		}
	}
	out := make([]MonthTotal, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ExpensesByCategory folds free-form labels onto the canonical categories.
// Unknown labels land in Other; missing ones in Uncategorized.
func ExpensesByCategory(txs []entity.Transaction) []CategoryTotal {
	order := append(constants.AsStringSlice(), string(constants.Uncategorized))
	totals := make(map[string]*CategoryTotal, len(order))
	for _, c := range order {
		totals[c] = &CategoryTotal{Category: c, Total: decimal.Zero}
	}
	for _, tx := range txs {
		if isIncome(tx) {
			continue
		}
		key := string(constants.Uncategorized)
		if !tx.Uncategorized() {
			cat, _ := constants.Canonicalize(tx.Category)
			key = string(cat)
		}
		t := totals[key]
		t.Total = t.Total.Add(tx.Amount.Abs())
		t.Count++
	}
	out := make([]CategoryTotal, 0, len(order))
	for _, c := range order {
		out = append(out, *totals[c])
	}
	return out
}

func isIncome(tx entity.Transaction) bool {
	return strings.EqualFold(strings.TrimSpace(tx.Category), IncomeCategory)
}

func status(txs []entity.Transaction) SideStatus {
	s := SideStatus{Total: len(txs)}
	for _, tx := range txs {
		if tx.Matched {
			s.Matched++
		}
	}
	s.Unmatched = s.Total - s.Matched
	return s
}
