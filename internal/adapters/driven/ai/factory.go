// Package ai provides factory functions for creating generation adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/distill/internal/adapters/driven/llm"
	anthropicllm "github.com/custodia-labs/distill/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/custodia-labs/distill/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of generation provider initialisation.
type InitResult struct {
	Generator driven.TextGenerator
	Provider  driven.GenerationProvider
	Warnings  []string // Non-fatal issues; the provider is left nil.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Generator != nil {
		r.Generator.Close()
	}
}

// Init builds the generation provider from settings. An unconfigured or
// unreachable provider is not fatal: the result carries a warning and a
// nil provider, and generation operations report not_configured.
func Init(settings *domain.LLMSettings, prompts driven.PromptStore, validate bool) *InitResult {
	result := &InitResult{}
	if settings == nil || !settings.IsConfigured() {
		result.Warnings = append(result.Warnings, "no generation provider configured")
		return result
	}

	gen, err := CreateGenerator(settings)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}

	if validate {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := gen.Ping(ctx); err != nil {
			gen.Close()
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s unreachable: %v", settings.Provider, err))
			return result
		}
	}

	provider, err := llm.NewProvider(gen, prompts)
	if err != nil {
		gen.Close()
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}
	result.Generator = gen
	result.Provider = provider
	return result
}

// CreateProvider creates a generation provider, or a not_configured error
// when the settings carry no usable credentials.
func CreateProvider(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.GenerationProvider, error) {
	gen, err := CreateGenerator(settings)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		e := domain.NewError(domain.KindNotConfigured, "ai.create_provider", "no generation provider is configured")
		e.Err = domain.ErrLLMUnavailable
		return nil, e
	}
	return llm.NewProvider(gen, prompts)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use when saving provider settings.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	gen, err := CreateGenerator(settings)
	if err != nil {
		return err
	}
	defer gen.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := gen.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// CreateGenerator creates the text generator for the configured provider.
// Returns nil if the provider is not configured.
func CreateGenerator(settings *domain.LLMSettings) (driven.TextGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
