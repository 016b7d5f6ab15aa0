package domain

import "context"

// Generator is the shared text-generation contract between layers.
// Implementations run at a deterministic low temperature; the prompt is the
// only variable input.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the generated text and token usage.
type GenerationResult struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}
