// Package reconcile pairs two transaction collections by amount and date.
package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

const hoursPerDay = 24

// Tolerance bounds the match predicate. Amounts must differ by strictly
// less than Amount; dates by at most Days calendar days.
type Tolerance struct {
	Amount decimal.Decimal
	Days   int
}

var DefaultTolerance = Tolerance{Amount: decimal.New(1, -2), Days: 2}

type Option func(*Tolerance)

func WithAmountTolerance(d decimal.Decimal) Option {
	return func(t *Tolerance) { t.Amount = d }
}

func WithDayTolerance(days int) Option {
	return func(t *Tolerance) { t.Days = days }
}

func tolerance(opts []Option) Tolerance {
	t := DefaultTolerance
	for _, o := range opts {
		o(&t)
	}
	return t
}

// Matches reports whether a and b satisfy the predicate. Only amount and
// date take part.
func (t Tolerance) Matches(a, b entity.Transaction) bool {
	if a.Amount.Sub(b.Amount).Abs().GreaterThanOrEqual(t.Amount) {
		return false
	}
	return dayDiff(a.Date, b.Date) <= t.Days
}

// dayDiff compares calendar dates, ignoring time of day.
func dayDiff(a, b time.Time) int {
	d := int(entity.DateOnly(a).Sub(entity.DateOnly(b)).Hours()) / hoursPerDay
	if d < 0 {
		return -d
	}
	return d
}

// Summary counts matched entries per side after a run.
type Summary struct {
	MatchedA   int `json:"matched_a"`
	UnmatchedA int `json:"unmatched_a"`
	MatchedB   int `json:"matched_b"`
	UnmatchedB int `json:"unmatched_b"`
}

// Match marks every transaction on each side that has at least one
// counterpart on the other side. One counterpart may satisfy many entries.
// Flags are only ever set, so running it twice gives the same result.
// Both inputs are validated before anything is changed.
func Match(a, b []entity.Transaction, opts ...Option) (Summary, error) {
	if err := validate(a, b); err != nil {
		return Summary{}, err
	}
	tol := tolerance(opts)

	for i := range a {
		for j := range b {
			if tol.Matches(a[i], b[j]) {
				a[i].Matched = true
				b[j].Matched = true
			}
		}
	}
	return summarize(a, b), nil
}

// Pair is one 1:1 assignment from MatchOneToOne, by index.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// MatchOneToOne is the strict variant: each unmatched entry of a, in order,
// takes the first unconsumed and unmatched entry of b satisfying the
// predicate. A counterpart is used at most once.
func MatchOneToOne(a, b []entity.Transaction, opts ...Option) ([]Pair, Summary, error) {
	if err := validate(a, b); err != nil {
		return nil, Summary{}, err
	}
	tol := tolerance(opts)

	used := make([]bool, len(b))
	var pairs []Pair
	for i := range a {
		if a[i].Matched {
			continue
		}
		for j := range b {
			if used[j] || b[j].Matched || !tol.Matches(a[i], b[j]) {
				continue
			}
			used[j] = true
			a[i].Matched = true
			b[j].Matched = true
			pairs = append(pairs, Pair{A: i, B: j})
			break
		}
	}
	return pairs, summarize(a, b), nil
}

func validate(a, b []entity.Transaction) error {
	for _, side := range [][]entity.Transaction{a, b} {
		for _, tx := range side {
			if err := tx.Validate(); err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
		}
	}
	return nil
}

func summarize(a, b []entity.Transaction) Summary {
	var s Summary
	for _, tx := range a {
		if tx.Matched {
			s.MatchedA++
		} else {
			s.UnmatchedA++
		}
	}
	for _, tx := range b {
		if tx.Matched {
			s.MatchedB++
		} else {
			s.UnmatchedB++
		}
	}
	return s
}

// MatchedIDs lists the ids of matched transactions.
func MatchedIDs(txs []entity.Transaction) []string {
	var ids []string
	for _, tx := range txs {
		if tx.Matched {
			ids = append(ids, tx.ID)
		}
	}
	return ids
}
