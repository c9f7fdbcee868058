package llm

import (
	"context"
)

// MockRenderer is a configurable mock for testing rendering behavior.
// Set the function field to control behavior in tests.
type MockRenderer struct {
	// RenderFunc is called when Render is invoked.
	// If nil, returns an empty string and nil error.
	RenderFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	RenderCalls int
	LastPrompt  string
}

var _ Renderer = (*MockRenderer)(nil)

// NewMockRenderer creates a new mock with sensible defaults.
func NewMockRenderer() *MockRenderer {
	return &MockRenderer{Model: "mock-model"}
}

// Render implements Renderer.
func (m *MockRenderer) Render(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.RenderCalls++
	m.LastPrompt = prompt
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// GetModel implements Renderer.
func (m *MockRenderer) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}
