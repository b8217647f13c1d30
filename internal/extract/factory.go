package extract

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

// New picks the strategy for mode once. completer may be nil for the
// heuristic mode.
func New(mode string, cfg HeuristicConfig, completer llm.Completer, logger *slog.Logger) (Strategy, error) {
	switch mode {
	case common.ModeHeuristic:
		return NewHeuristic(cfg, logger), nil
	case common.ModeService:
		return NewService(completer, logger)
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}
}
