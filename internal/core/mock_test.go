package core

import (
	"context"
	"sync"

	"github.com/agenthands/notalone/internal/llm"
)

type chatCall struct {
	System  string
	History []llm.Message
	Message string
}

// MockLLM replays queued responses and records every call.
type MockLLM struct {
	mu sync.Mutex

	ChatResponses     []string
	GenerateResponses []string
	ChatErr           error
	GenerateErr       error

	ChatCalls []chatCall
	Prompts   []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	return pop(&m.GenerateResponses), nil
}

func (m *MockLLM) Chat(ctx context.Context, system string, history []llm.Message, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = append(m.ChatCalls, chatCall{System: system, History: history, Message: message})
	if m.ChatErr != nil {
		return "", m.ChatErr
	}
	return pop(&m.ChatResponses), nil
}

func pop(queue *[]string) string {
	if len(*queue) == 0 {
		return ""
	}
	resp := (*queue)[0]
	*queue = (*queue)[1:]
	return resp
}
