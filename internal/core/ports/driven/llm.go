// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// TextGenerator is a raw language model endpoint. Generation providers are
// built on top of it.
//
// Implementations include:
//   - OpenAI (chat completions)
//   - Anthropic (messages)
type TextGenerator interface {
	// Generate produces text completion from a system prompt and a user prompt.
	Generate(ctx context.Context, system, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string

	// JSON asks for a single JSON object where the provider supports it.
	JSON bool
}

// AIConfigValidator checks provider credentials before they are saved.
type AIConfigValidator interface {
	// ValidateLLM pings the configured provider. Unconfigured settings are valid.
	ValidateLLM(config *domain.LLMSettings) error
}
