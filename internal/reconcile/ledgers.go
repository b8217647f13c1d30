package reconcile

import (
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
)

// IDPair names a 1:1 assignment by transaction id.
type IDPair struct {
	Ledger   string `json:"ledger"`
	Document string `json:"document"`
}

type Result struct {
	Summary   Summary              `json:"summary"`
	Strict    bool                 `json:"strict"`
	Pairs     []IDPair             `json:"pairs,omitempty"`
	Ledger    []entity.Transaction `json:"ledger"`
	Documents []entity.Transaction `json:"documents"`
}

// Book reconciles the two sides of b and writes the matched flags back.
// With strict set it uses MatchOneToOne instead of Match.
func Book(b *ledger.Book, strict bool, opts ...Option) (Result, error) {
	left, right := b.Ledger.List(), b.Documents.List()

	res := Result{Strict: strict}
	var err error
	if strict {
		var pairs []Pair
		pairs, res.Summary, err = MatchOneToOne(left, right, opts...)
		for _, p := range pairs {
			res.Pairs = append(res.Pairs, IDPair{Ledger: left[p.A].ID, Document: right[p.B].ID})
		}
	} else {
		res.Summary, err = Match(left, right, opts...)
	}
	if err != nil {
		return Result{}, err
	}

	b.Ledger.Mark(MatchedIDs(left)...)
	b.Documents.Mark(MatchedIDs(right)...)
	res.Ledger = b.Ledger.List()
	res.Documents = b.Documents.List()
	return res, nil
}
