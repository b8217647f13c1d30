// Package gemini implements llm.Completer on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string // default gemini-2.5-flash
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// generator is the slice of genai.Models the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg    Config
	models generator
	logger *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, common.AuthenticationError("gemini api key is not configured")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(cfg, client.Models, logger), nil
}

func newClient(cfg Config, models generator, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, models: models, logger: logger}
}

func (c *Client) Name() string {
	return "gemini:" + c.cfg.Model
}

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	system := req.System
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	}
	if c.cfg.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}
	if req.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		system += "\n\nJSON Schema:\n" + llm.MustJSON(req.Schema)
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"purpose", req.Purpose,
		"model", c.cfg.Model,
		"text_len", len(req.User),
		"json", req.Schema != nil,
		"image", req.Image != nil,
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	contents := genai.Text(req.User)
	if req.Image != nil {
		contents = []*genai.Content{genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.User),
			genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType),
		}, genai.RoleUser)}
	}

	resp, err := c.models.GenerateContent(ctx, c.cfg.Model, contents, gc)
	if err != nil {
		err = classify(err)
		c.logger.Error("llm.complete.error",
			"req_id", rid, "error", err,
			"retryable", common.IsRetryable(err),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	content := ""
	if resp != nil {
		content = strings.TrimSpace(resp.Text())
	}
	if content == "" {
		c.logger.Error("llm.complete.empty", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.ParseError("empty response from gemini", nil)
	}

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"purpose", req.Purpose,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return common.ClassifyHTTPStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return common.ClassifyHTTPStatus(apiErrPtr.Code, apiErrPtr.Message)
	}
	return common.ClassifyTransportError(err)
}
