package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIRenderer renders answers via OpenAI-compatible chat endpoints.
// Works with api.openai.com and local servers that speak the same protocol.
type OpenAIRenderer struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ Renderer = (*OpenAIRenderer)(nil)

// Config holds configuration for creating a renderer client.
type Config struct {
	Endpoint  string // Base URL, e.g. "https://api.openai.com/v1". Optional for OpenAI.
	Model     string // Model name, e.g. "gpt-4o-mini"
	APIKey    string // Optional for local endpoints
	MaxTokens int
}

// NewOpenAIRenderer creates a renderer backed by an OpenAI-compatible endpoint.
func NewOpenAIRenderer(cfg *Config, logger *zap.Logger) (*OpenAIRenderer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	return &OpenAIRenderer{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// Render generates a chat completion for the given prompt.
func (r *OpenAIRenderer) Render(ctx context.Context, prompt string, systemMessage string) (string, error) {
	r.logger.Debug("Render request",
		zap.String("model", r.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		r.logger.Error("Render request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeUnknown, "no choices in response", false, nil)
	}

	r.logger.Info("Render request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GetModel returns the configured model name.
func (r *OpenAIRenderer) GetModel() string {
	return r.model
}
