package categorize

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

// NewClassifier builds the classifier for a resolved mode (keyword or llm).
func NewClassifier(mode, rulesFile string, completer llm.Completer, logger *slog.Logger) (Classifier, error) {
	switch mode {
	case common.ModeKeyword:
		var rules []Rule
		if rulesFile != "" {
			var err error
			if rules, err = LoadRules(rulesFile); err != nil {
				return nil, err
			}
		}
		return NewKeywordClassifier(rules)
	case common.ModeLLM:
		if completer == nil {
			return nil, fmt.Errorf("llm categorization requires a completer")
		}
		return NewLLMClassifier(completer, logger), nil
	default:
		return nil, fmt.Errorf("unknown categorize mode %q", mode)
	}
}
