package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicRenderer renders answers via the Anthropic Messages API.
type AnthropicRenderer struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ Renderer = (*AnthropicRenderer)(nil)

// NewAnthropicRenderer creates a renderer backed by the Anthropic API.
func NewAnthropicRenderer(cfg *Config, logger *zap.Logger) (*AnthropicRenderer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	opts := []anthropic.ClientOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	return &AnthropicRenderer{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// Render generates a message completion for the given prompt.
func (r *AnthropicRenderer) Render(ctx context.Context, prompt string, systemMessage string) (string, error) {
	r.logger.Debug("Render request",
		zap.String("model", r.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := r.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(r.model),
		System:    systemMessage,
		MaxTokens: r.maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		r.logger.Error("Render request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text = *block.Text
			break
		}
	}
	if text == "" {
		return "", NewError(ErrorTypeUnknown, "no text in response", false, nil)
	}

	r.logger.Info("Render request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return strings.TrimSpace(text), nil
}

// GetModel returns the configured model name.
func (r *AnthropicRenderer) GetModel() string {
	return r.model
}
