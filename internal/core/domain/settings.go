package domain

import "time"

// AIProvider identifies a content-generation provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return "Unknown"
	}
}

// StoreBackend selects the backing object store.
type StoreBackend string

// Available store backends.
const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
	StoreDrive  StoreBackend = "drive"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreMemory, StoreSQLite, StoreDrive:
		return true
	default:
		return false
	}
}

// StoreSettings configures the backing object store and its resilience policy.
type StoreSettings struct {
	Backend     StoreBackend
	DataDir     string
	DriveToken  string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string
}

// IsConfigured returns true if the provider is set up with credentials.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && l.APIKey != ""
}

// RateLimitSettings configures the sliding-window limiter.
type RateLimitSettings struct {
	Limit   int
	Window  time.Duration
	Backend StoreBackend
}

// Settings is the full runtime configuration.
type Settings struct {
	SpaceID    string
	Store      StoreSettings
	LLM        LLMSettings
	RateLimit  RateLimitSettings
	ScanBuffer int
	Citations  CitationLimits
}

// DefaultSettings returns settings used when no configuration exists.
func DefaultSettings() Settings {
	return Settings{
		SpaceID: "default",
		Store: StoreSettings{
			Backend:     StoreSQLite,
			Timeout:     8 * time.Second,
			MaxAttempts: 3,
			Backoff:     250 * time.Millisecond,
		},
		RateLimit: RateLimitSettings{
			Limit:   30,
			Window:  time.Minute,
			Backend: StoreMemory,
		},
		ScanBuffer: DefaultScanBuffer,
		Citations:  CitationLimits{}.WithDefaults(),
	}
}
