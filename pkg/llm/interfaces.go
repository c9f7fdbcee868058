// Package llm provides clients for rendering natural-language answers
// from retrieved spreadsheet data.
package llm

import (
	"context"
)

// Renderer defines the interface for answer rendering.
// Use this interface for dependency injection to enable mocking in tests.
type Renderer interface {
	// Render generates a natural-language answer from the given prompt.
	Render(ctx context.Context, prompt string, systemMessage string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}
