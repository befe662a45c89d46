// Package llm defines the language-model capability used for intent
// classification fallback and free-text reply generation. The rest of the
// system treats it as opaque: structured input in, structured output or a
// typed failure out.
package llm

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ErrSchemaViolation marks a model response that does not satisfy the
// requested structured-output contract. Callers degrade, they never crash.
var ErrSchemaViolation = errors.New("llm: response violates schema")

// ChatMessage is one turn of model input.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a completion call.
type Request struct {
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
	// ResponseJSON constrains the model to emit a single JSON document.
	ResponseJSON bool
}

// Response is the model output.
type Response struct {
	Text string
}

// Client is the completion capability.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a function to the Client interface; used by tests.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
