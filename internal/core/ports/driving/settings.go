package driving

import "github.com/custodia-labs/distill/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.Settings, error)

	// SetLLMProvider configures the generation provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// ValidateLLMConfig checks the stored provider credentials.
	ValidateLLMConfig() error

	// SetSpace changes the active space.
	SetSpace(spaceID string) error
}
