package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one prompt to a model and returns the raw reply. When the
// request carries a Schema, the provider asks for JSON through its native
// structured output mode.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the configured model, used in logs and metrics labels.
	ModelID() string
}

// Request is a single-turn prompt. Quiz generation and grading never
// carry conversation history.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema is a named JSON Schema the reply should conform to.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model's reply. Content is decoded and validated by the
// caller.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	// Model is the model that served the request, when the API reports it.
	Model string
}

// Usage is the token count of one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
