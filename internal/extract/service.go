package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

// Service delegates extraction to an external language model and validates
// the reply against the document schema. It never falls back to heuristics.
type Service struct {
	completer llm.Completer
	schemaMap map[string]any
	schema    *jsonschema.Schema
	logger    *slog.Logger
}

var _ Strategy = (*Service)(nil)

// serviceReply mirrors llm.BuildDocumentSchema.
type serviceReply struct {
	Vendor string          `json:"vendor"`
	Total  decimal.Decimal `json:"total"`
	Date   string          `json:"date"`
	Items  []struct {
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		Quantity *int            `json:"quantity,omitempty"`
	} `json:"items"`
}

func NewService(completer llm.Completer, logger *slog.Logger) (*Service, error) {
	if completer == nil {
		return nil, fmt.Errorf("service extraction requires a completer")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schemaMap := llm.BuildDocumentSchema()
	schema, err := llm.CompileSchema(schemaMap)
	if err != nil {
		return nil, err
	}
	return &Service{completer: completer, schemaMap: schemaMap, schema: schema, logger: logger}, nil
}

func (s *Service) Name() string { return "service:" + s.completer.Name() }

func (s *Service) Extract(ctx context.Context, req Request) (Fields, error) {
	text := req.Text
	if strings.TrimSpace(text) == "" {
		text = strings.Join(req.Lines, "\n")
	}

	image := llm.AttachImage(req.SourcePath, req.OCRConfidence)
	if image != nil {
		s.logger.Info("extract.service.attach_image", "file", req.SourcePath, "conf", req.OCRConfidence)
	}

	start := time.Now()
	raw, err := s.completer.Complete(ctx, llm.CompletionRequest{
		System:  llm.ExtractionSystemPrompt,
		User:    llm.BuildExtractionUserPrompt(text),
		Schema:  s.schemaMap,
		Purpose: "extract",
		Image:   image,
	})
	if err != nil {
		return Fields{}, common.ClassifyTransportError(err)
	}

	cleaned := llm.CleanModelJSON(raw)
	if err := llm.ValidateJSON(s.schema, []byte(cleaned)); err != nil {
		s.logger.Warn("extract.service.invalid_reply",
			"provider", s.completer.Name(),
			"error", err,
			"reply_len", len(raw),
		)
		return Fields{}, common.ParseError("service reply does not match the document schema", err)
	}

	var reply serviceReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return Fields{}, common.ParseError("decoding service reply", err)
	}

	date, err := entity.ParseDate(strings.TrimSpace(reply.Date))
	if err != nil {
		return Fields{}, common.ParseError("service reply has an invalid date", err)
	}

	vendor := strings.TrimSpace(reply.Vendor)
	if vendor == "" {
		vendor = entity.UnknownVendor
	}

	items := make([]entity.LineItem, 0, len(reply.Items))
	for _, it := range reply.Items {
		items = append(items, entity.LineItem{
			Name:     strings.TrimSpace(it.Name),
			Price:    it.Price.Abs(),
			Quantity: it.Quantity,
		})
	}

	s.logger.Debug("extract.service.ok",
		"provider", s.completer.Name(),
		"items", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Fields{
		Vendor:    vendor,
		Amount:    reply.Total.Abs(),
		Date:      date,
		LineItems: items,
	}, nil
}
