package ai

import (
	"context"
)

// Request is one generation attempt as sent to a backend.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int

	// JSON asks the backend for a JSON object response when it supports it.
	JSON bool
}

// Provider defines the interface for an AI backend (e.g. OpenAI, Ollama, Anthropic).
type Provider interface {
	// Generate sends the request and returns the raw response text.
	// Failures are reported as *ProviderError.
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
