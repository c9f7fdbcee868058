package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/config"
)

// NewRenderer creates a renderer for the configured provider.
// Returns (nil, nil) when rendering is disabled so callers can fall back
// to deterministic formatting.
func NewRenderer(cfg *config.RendererConfig, logger *zap.Logger) (Renderer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	clientCfg := &Config{
		Endpoint:  cfg.Endpoint,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIRenderer(clientCfg, logger)
	case "anthropic":
		return NewAnthropicRenderer(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown renderer provider: %q", cfg.Provider)
	}
}
