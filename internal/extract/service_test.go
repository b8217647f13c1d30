package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

type stubCompleter struct {
	reply string
	err   error
	got   llm.CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.got = req
	return s.reply, s.err
}

func (s *stubCompleter) Name() string { return "stub" }

func newService(t *testing.T, c llm.Completer) *Service {
	t.Helper()
	s, err := NewService(c, nil)
	require.NoError(t, err)
	return s
}

func TestService_ValidReply(t *testing.T) {
	c := &stubCompleter{reply: "```json\n" + `{
		"vendor": " Office Depot ",
		"total": -45.99,
		"date": "2024-03-03",
		"items": [
			{"name": "Paper", "price": 20.00, "quantity": 2},
			{"name": "Pens", "price": -5.99}
		]
	}` + "\n```"}
	s := newService(t, c)

	f, err := s.Extract(context.Background(), Request{Lines: []string{"OFFICE DEPOT", "TOTAL 45.99"}})
	require.NoError(t, err)

	assert.Equal(t, "Office Depot", f.Vendor)
	assert.True(t, decimal.RequireFromString("45.99").Equal(f.Amount))
	assert.Equal(t, day(2024, 3, 3), f.Date)
	require.Len(t, f.LineItems, 2)
	assert.Equal(t, "Paper", f.LineItems[0].Name)
	require.NotNil(t, f.LineItems[0].Quantity)
	assert.Equal(t, 2, *f.LineItems[0].Quantity)
	assert.True(t, decimal.RequireFromString("5.99").Equal(f.LineItems[1].Price))
	assert.Nil(t, f.LineItems[1].Quantity)

	assert.Equal(t, "extract", c.got.Purpose)
	assert.Equal(t, llm.ExtractionSystemPrompt, c.got.System)
	assert.Contains(t, c.got.User, "OFFICE DEPOT\nTOTAL 45.99")
	assert.NotNil(t, c.got.Schema)
}

func TestService_PrefersRequestText(t *testing.T) {
	c := &stubCompleter{reply: `{"vendor":"A","total":1,"date":"2024-01-01"}`}
	_, err := newService(t, c).Extract(context.Background(), Request{Text: "raw text", Lines: []string{"lines"}})
	require.NoError(t, err)
	assert.Contains(t, c.got.User, "raw text")
	assert.NotContains(t, c.got.User, "lines")
}

func TestService_AttachesLowConfidenceImage(t *testing.T) {
	png := filepath.Join(t.TempDir(), "blurry.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG"), 0o644))
	reply := `{"vendor":"A","total":1,"date":"2024-01-01"}`

	c := &stubCompleter{reply: reply}
	_, err := newService(t, c).Extract(context.Background(), Request{Text: "x", SourcePath: png, OCRConfidence: 0.3})
	require.NoError(t, err)
	require.NotNil(t, c.got.Image)
	assert.Equal(t, "image/png", c.got.Image.MIMEType)

	c = &stubCompleter{reply: reply}
	_, err = newService(t, c).Extract(context.Background(), Request{Text: "x", SourcePath: png, OCRConfidence: 0.9})
	require.NoError(t, err)
	assert.Nil(t, c.got.Image)
}

func TestService_EmptyVendorIsUnknown(t *testing.T) {
	c := &stubCompleter{reply: `{"vendor":"  ","total":12.5,"date":"2024-01-01","items":[]}`}
	f, err := newService(t, c).Extract(context.Background(), Request{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, entity.UnknownVendor, f.Vendor)
	assert.Empty(t, f.LineItems)
}

func TestService_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "I could not read this receipt."},
		{"missing total", `{"vendor":"A","date":"2024-01-01"}`},
		{"total as string", `{"vendor":"A","total":"12.00","date":"2024-01-01"}`},
		{"bad date shape", `{"vendor":"A","total":1,"date":"03/01/2024"}`},
		{"impossible date", `{"vendor":"A","total":1,"date":"2024-02-30"}`},
		{"unknown field", `{"vendor":"A","total":1,"date":"2024-01-01","tax":2}`},
		{"zero quantity", `{"vendor":"A","total":1,"date":"2024-01-01","items":[{"name":"x","price":1,"quantity":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(t, &stubCompleter{reply: tt.reply}).Extract(context.Background(), Request{Text: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrParse)
			assert.False(t, common.IsRetryable(err))
		})
	}
}

func TestService_ProviderErrorsKeepTheirKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"auth", common.AuthenticationError("bad key"), common.ErrAuthentication},
		{"rate limit", common.RateLimitError("slow down"), common.ErrRateLimited},
		{"deadline", context.DeadlineExceeded, common.ErrTimeout},
		{"other", errors.New("connection reset"), common.ErrExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(t, &stubCompleter{err: tt.err}).Extract(context.Background(), Request{Text: "x"})
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestNew(t *testing.T) {
	h, err := New(common.ModeHeuristic, HeuristicConfig{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "heuristic", h.Name())

	s, err := New(common.ModeService, HeuristicConfig{}, &stubCompleter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "service:stub", s.Name())

	_, err = New(common.ModeService, HeuristicConfig{}, nil, nil)
	assert.Error(t, err)

	_, err = New("auto", HeuristicConfig{}, nil, nil)
	assert.Error(t, err)
}
