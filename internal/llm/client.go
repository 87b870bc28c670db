package llm

import (
	"context"
	"errors"
)

// ErrRateLimited is wrapped into provider errors caused by an HTTP 429 (or
// the provider's equivalent quota error).
var ErrRateLimited = errors.New("completion service rate limited")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// LLMClient is the completion service.
type LLMClient interface {
	// Generate runs a single-shot prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Chat continues a conversation: system instruction, prior turns, then
	// the new user message.
	Chat(ctx context.Context, system string, history []Message, message string) (string, error)
}
