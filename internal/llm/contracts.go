// Package llm holds the provider-neutral contract for prompt completion plus
// the shared JSON plumbing (schema, validation, transport) used by providers.
package llm

import "context"

// CompletionRequest is a single system+user exchange.
type CompletionRequest struct {
	System string
	User   string
	// Schema, when set, asks the provider for a JSON object reply that
	// follows it. Callers still validate the reply themselves.
	Schema map[string]any
	// Purpose tags log lines ("extract", "classify").
	Purpose string
	// Image is sent alongside User by providers that accept vision input.
	Image *Image
}

// Image is an inline picture attached to a request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Completer is the external language-model capability.
// Errors carry the kinds from internal/common (authentication, rate limit,
// timeout, extraction failure).
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}
