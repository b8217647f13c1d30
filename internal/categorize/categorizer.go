package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
)

type Categorizer struct {
	classifier  Classifier
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

type Option func(*Categorizer)

func WithConcurrency(n int) Option {
	return func(c *Categorizer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds each classification call.
func WithTimeout(d time.Duration) Option {
	return func(c *Categorizer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(classifier Classifier, logger *slog.Logger, opts ...Option) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Categorizer{
		classifier:  classifier,
		concurrency: 4,
		timeout:     20 * time.Second,
		logger:      logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Categorize returns the trimmed label for tx without changing it.
func (c *Categorizer) Categorize(ctx context.Context, tx entity.Transaction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	label, err := c.classifier.Classify(ctx, tx.Description)
	if err != nil {
		return "", common.ClassifyTransportError(err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", common.ParseError(fmt.Sprintf("empty category for transaction %s", tx.ID), nil)
	}
	return label, nil
}

// CategorizeOne classifies one transaction of l and stores the label.
func (c *Categorizer) CategorizeOne(ctx context.Context, l *ledger.Ledger, id string) (entity.Transaction, error) {
	tx, ok := l.Get(id)
	if !ok {
		return entity.Transaction{}, common.NotFoundError(fmt.Sprintf("%s transaction %s not found", l.Side(), id))
	}
	label, err := c.Categorize(ctx, tx)
	if err != nil {
		return entity.Transaction{}, err
	}
	if err := l.SetCategory(id, label); err != nil {
		return entity.Transaction{}, err
	}
	tx.Category = label
	return tx, nil
}

type Outcome struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

type Failure struct {
	ID        string `json:"id"`
	Code      string `json:"code,omitempty"`
	Title     string `json:"title"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// BulkResult is a partial success report, in ledger order.
type BulkResult struct {
	Categorized []Outcome `json:"categorized"`
	Failed      []Failure `json:"failed"`
}

// CategorizeAll classifies every uncategorized transaction of l. Calls run
// concurrently up to the configured limit; a failure leaves that
// transaction uncategorized and never stops the others.
func (c *Categorizer) CategorizeAll(ctx context.Context, l *ledger.Ledger) BulkResult {
	pending := l.Uncategorized()
	outcomes := make([]*Outcome, len(pending))
	failures := make([]*Failure, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, tx := range pending {
		g.Go(func() error {
			label, err := c.Categorize(gctx, tx)
			if err == nil {
				err = l.SetCategory(tx.ID, label)
			}
			if err != nil {
				c.logger.Warn("categorize.failed", "side", l.Side(), "tx_id", tx.ID, "error", err)
				failures[i] = &Failure{
					ID:        tx.ID,
					Code:      common.Kind(err),
					Title:     common.Title(err),
					Error:     err.Error(),
					Retryable: common.IsRetryable(err),
				}
				return nil
			}
			outcomes[i] = &Outcome{ID: tx.ID, Category: label}
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	res := BulkResult{Categorized: []Outcome{}, Failed: []Failure{}}
	for i := range pending {
		if outcomes[i] != nil {
			res.Categorized = append(res.Categorized, *outcomes[i])
		}
		if failures[i] != nil {
			res.Failed = append(res.Failed, *failures[i])
		}
	}
	c.logger.Info("categorize.bulk.done",
		"side", l.Side(),
		"classifier", c.classifier.Name(),
		"categorized", len(res.Categorized),
		"failed", len(res.Failed),
	)
	return res
}
