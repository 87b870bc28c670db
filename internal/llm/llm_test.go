package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agenthands/notalone/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "llama-farm"}, zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestNewClient_OllamaUsesOpenAICompatibleClient(t *testing.T) {
	c, err := NewClient(context.Background(), config.LLMConfig{
		Provider: "ollama",
		Model:    "llama3",
		BaseURL:  "http://localhost:11434/",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)
}

func TestOpenAIClient_Chat(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"I'm here for you."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "gpt-4o-mini", srv.URL, 256)
	reply, err := c.Chat(context.Background(), "be kind", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}, "my sister ignores me")

	require.NoError(t, err)
	assert.Equal(t, "I'm here for you.", reply)
	assert.Equal(t, "gpt-4o-mini", received.Model)
	require.Len(t, received.Messages, 4)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "user", received.Messages[1].Role)
	assert.Equal(t, "assistant", received.Messages[2].Role)
	assert.Equal(t, "my sister ignores me", received.Messages[3].Content)
}

func TestOpenAIClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "gpt-4o-mini", srv.URL, 256)
	_, err := c.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestWrapGeminiError(t *testing.T) {
	err := wrapGeminiError(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"})
	assert.True(t, errors.Is(err, ErrRateLimited))

	err = wrapGeminiError(errors.New("rpc error: code = ResourceExhausted desc = quota"))
	assert.True(t, errors.Is(err, ErrRateLimited))

	plain := errors.New("bad request")
	assert.Equal(t, plain, wrapGeminiError(plain))
}
