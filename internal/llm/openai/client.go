package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

// Complete implements llm.Completer over /chat/completions. A request with a
// schema asks for a json_object reply and passes the schema as an extra
// system message.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	if c.cfg.APIKey == "" {
		c.logger.Error("llm.complete.missing_api_key", "req_id", rid)
		return "", common.AuthenticationError("openai api key is not configured")
	}

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"purpose", req.Purpose,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.User),
		"json", req.Schema != nil,
		"image", req.Image != nil,
	)

	var user any = req.User
	if req.Image != nil {
		user = []map[string]any{
			{"type": "text", "text": req.User},
			{"type": "image_url", "image_url": map[string]any{"url": req.Image.DataURL()}},
		}
	}
	messages := []map[string]any{
		{"role": "system", "content": req.System},
		{"role": "user", "content": user},
	}
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
	}
	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}
	if req.Schema != nil {
		body["response_format"] = map[string]any{"type": "json_object"}
		messages = append(messages, map[string]any{"role": "system", "content": "JSON Schema:\n" + llm.MustJSON(req.Schema)})
	}
	body["messages"] = messages

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"retryable", common.IsRetryable(err),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.ParseError("decode openai response", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices",
			"req_id", rid, "elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.ParseError("no choices in openai response", nil)
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"purpose", req.Purpose,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
