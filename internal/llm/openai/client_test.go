package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test", Timeout: 2 * time.Second}, nil)
}

func TestComplete_SendsSchemaAndReturnsContent(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"vendor\":\"ACME\"}  "}}]}`))
	})

	out, err := c.Complete(context.Background(), llm.CompletionRequest{
		System: "sys", User: "user", Schema: llm.BuildDocumentSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"vendor":"ACME"}`, out)

	assert.Equal(t, "gpt-test", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 3)
}

func TestComplete_PlainTextHasNoResponseFormat(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Meals\n"}}]}`))
	})

	out, err := c.Complete(context.Background(), llm.CompletionRequest{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "Meals", out)
	assert.NotContains(t, got, "response_format")
}

func TestComplete_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		want      error
		retryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: common.ErrAuthentication},
		{name: "rate limited", status: http.StatusTooManyRequests, want: common.ErrRateLimited, retryable: true},
		{name: "server error", status: http.StatusInternalServerError, want: common.ErrExtraction, retryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"nope"}`, tt.status)
			})
			_, err := c.Complete(context.Background(), llm.CompletionRequest{User: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
		})
	}
}

func TestComplete_TimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	_, err := c.Complete(context.Background(), llm.CompletionRequest{User: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTimeout)
	assert.True(t, common.IsRetryable(err))
}

func TestComplete_MissingKey(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Complete(context.Background(), llm.CompletionRequest{User: "x"})
	assert.ErrorIs(t, err, common.ErrAuthentication)
}

func TestComplete_NoChoicesIsParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Complete(context.Background(), llm.CompletionRequest{User: "x"})
	assert.ErrorIs(t, err, common.ErrParse)
}

func TestComplete_AttachesImage(t *testing.T) {
	var got struct {
		Messages []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"messages"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	})

	_, err := c.Complete(context.Background(), llm.CompletionRequest{
		System: "s", User: "u",
		Image: &llm.Image{Data: []byte("img"), MIMEType: "image/jpeg"},
	})
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	parts, ok := got.Messages[1].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	assert.Equal(t, "data:image/jpeg;base64,aW1n", imagePart["image_url"].(map[string]any)["url"])
}
