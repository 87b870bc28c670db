package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/notalone/internal/config"
	"github.com/agenthands/notalone/internal/logger"
	"go.uber.org/zap"
)

const defaultMaxTokens = 2048

func NewClient(ctx context.Context, cfg config.LLMConfig, log *zap.Logger) (LLMClient, error) {
	log = logger.OrNop(log)
	provider := strings.ToLower(cfg.Provider)
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, maxTokens), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, maxTokens)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, maxTokens), nil

	case "ollama":
		// Ollama speaks the OpenAI chat completions API under /v1.
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		log.Info("Initializing Ollama via OpenAI-compatible API", zap.String("base_url", baseURL))

		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by Ollama, required by the client
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, maxTokens), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
