// Package categorize assigns category labels to transactions.
package categorize

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

// Classifier is the external classification capability: description in,
// one label out.
type Classifier interface {
	Classify(ctx context.Context, description string) (string, error)
	Name() string
}

// LLMClassifier asks a language model for the label. Whatever label comes
// back is accepted; the category set is only a hint in the prompt.
type LLMClassifier struct {
	completer  llm.Completer
	categories []string
	logger     *slog.Logger
}

var _ Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(completer llm.Completer, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		completer:  completer,
		categories: constants.AsStringSlice(),
		logger:     logger,
	}
}

func (c *LLMClassifier) Name() string { return "llm:" + c.completer.Name() }

func (c *LLMClassifier) Classify(ctx context.Context, description string) (string, error) {
	out, err := c.completer.Complete(ctx, llm.CompletionRequest{
		System:  llm.ClassificationSystemPrompt(c.categories),
		User:    llm.BuildClassificationUserPrompt(description),
		Purpose: "classify",
	})
	if err != nil {
		return "", common.ClassifyTransportError(err)
	}
	return strings.TrimSpace(out), nil
}
