package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySpaceID           = "space.id"
	keyStoreBackend      = "store.backend"
	keyStoreDataDir      = "store.data_dir"
	keyStoreDriveToken   = "store.drive_token"
	keyStoreTimeoutMS    = "store.timeout_ms"
	keyStoreMaxAttempts  = "store.max_attempts"
	keyStoreBackoffMS    = "store.backoff_ms"
	keyRateLimit         = "ratelimit.limit"
	keyRateWindowMS      = "ratelimit.window_ms"
	keyRateBackend       = "ratelimit.backend"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyQueryScanBuffer   = "query.scan_buffer"
	keyCitationsMax      = "citations.max"
	keyCitationsExcerpts = "citations.max_excerpt_chars"
)

// Environment overrides for secrets kept out of the config file.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvDriveToken = "DISTILL_DRIVE_TOKEN"
	EnvLLMAPIKey  = "DISTILL_LLM_API_KEY"
)

// defaultLLMModels maps providers to the model used when none is set.
var defaultLLMModels = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "gpt-4o-mini",
	domain.AIProviderAnthropic: "claude-3-5-haiku-latest",
}

// SettingsService reads runtime settings from a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current settings, falling back to defaults for unset or
// invalid values.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		SpaceID: s.getString(keySpaceID, d.SpaceID),
		Store: domain.StoreSettings{
			Backend:     s.getBackend(keyStoreBackend, d.Store.Backend),
			DataDir:     s.getString(keyStoreDataDir, d.Store.DataDir),
			DriveToken:  s.getSecret(keyStoreDriveToken, EnvDriveToken),
			Timeout:     s.getMillis(keyStoreTimeoutMS, d.Store.Timeout),
			MaxAttempts: s.getInt(keyStoreMaxAttempts, d.Store.MaxAttempts),
			Backoff:     s.getMillis(keyStoreBackoffMS, d.Store.Backoff),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.getSecret(keyLLMAPIKey, EnvLLMAPIKey),
		},
		RateLimit: domain.RateLimitSettings{
			Limit:   s.getInt(keyRateLimit, d.RateLimit.Limit),
			Window:  s.getMillis(keyRateWindowMS, d.RateLimit.Window),
			Backend: s.getBackend(keyRateBackend, d.RateLimit.Backend),
		},
		ScanBuffer: s.getInt(keyQueryScanBuffer, d.ScanBuffer),
		Citations: domain.CitationLimits{
			MaxCitations:    s.getInt(keyCitationsMax, d.Citations.MaxCitations),
			MaxExcerptChars: s.getInt(keyCitationsExcerpts, d.Citations.MaxExcerptChars),
		},
	}

	if settings.LLM.Provider != "" && settings.LLM.Model == "" {
		settings.LLM.Model = defaultLLMModels[settings.LLM.Provider]
	}
	if settings.RateLimit.Backend == domain.StoreDrive {
		// Drive is not a counter backend.
		settings.RateLimit.Backend = d.RateLimit.Backend
	}
	return settings, nil
}

// SetValidator installs the provider credential check used by ValidateLLMConfig.
func (s *SettingsService) SetValidator(v driven.AIConfigValidator) {
	s.validator = v
}

// ValidateLLMConfig pings the configured provider. Without a validator or
// a configured provider there is nothing to check.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateLLM(&settings.LLM)
}

// SetLLMProvider configures the generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if apiKey == "" && s.getenv(EnvLLMAPIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}
	if model == "" {
		model = defaultLLMModels[provider]
	}

	if err := s.configStore.Set(keyLLMProvider, string(provider)); err != nil {
		return fmt.Errorf("failed to save LLM provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, model); err != nil {
		return fmt.Errorf("failed to save LLM model: %w", err)
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, apiKey); err != nil {
			return fmt.Errorf("failed to save LLM API key: %w", err)
		}
	}
	return nil
}

// SetSpace changes the active space.
func (s *SettingsService) SetSpace(spaceID string) error {
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return fmt.Errorf("space id cannot be empty: %w", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keySpaceID, spaceID); err != nil {
		return fmt.Errorf("failed to save space: %w", err)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Millisecond
}

// getSecret prefers the config file and falls back to the environment.
func (s *SettingsService) getSecret(key, env string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return s.getenv(env)
}

func (s *SettingsService) getBackend(key string, defaultVal domain.StoreBackend) domain.StoreBackend {
	b := domain.StoreBackend(strings.ToLower(s.configStore.GetString(key)))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func (s *SettingsService) getProvider(key string) domain.AIProvider {
	p := domain.AIProvider(strings.ToLower(s.configStore.GetString(key)))
	if !p.IsValid() {
		return ""
	}
	return p
}
