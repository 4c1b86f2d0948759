package ai

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/core/domain"
)

type stubPrompts struct{}

func (stubPrompts) Load(string) (string, error) { return "prompt", nil }
func (stubPrompts) Reload()                     {}

func TestInitResult_Close(t *testing.T) {
	result := &InitResult{}
	// Should not panic
	result.Close()
}

func TestCreateGenerator(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantErr   bool
		wantModel string
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "unconfigured settings returns nil", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{
			name:      "openai provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"},
			wantModel: "gpt-4o",
		},
		{
			name:      "anthropic provider uses default model",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantModel: "claude-3-5-haiku-latest",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := CreateGenerator(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, gen)
				return
			}
			require.NotNil(t, gen)
			assert.Equal(t, tt.wantModel, gen.ModelName())
		})
	}
}

func TestCreateProvider_NotConfigured(t *testing.T) {
	_, err := CreateProvider(&domain.LLMSettings{}, stubPrompts{})

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotConfigured))
	assert.True(t, errors.Is(err, domain.ErrLLMUnavailable))
}

func TestCreateProvider_Configured(t *testing.T) {
	p, err := CreateProvider(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "m"}, stubPrompts{})

	require.NoError(t, err)
	assert.Equal(t, "m", p.ModelName())
}

func TestInit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Run("unconfigured warns", func(t *testing.T) {
		result := Init(nil, stubPrompts{}, false)
		assert.Nil(t, result.Provider)
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("reachable provider", func(t *testing.T) {
		settings := &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", BaseURL: srv.URL}
		result := Init(settings, stubPrompts{}, true)
		defer result.Close()
		require.NotNil(t, result.Provider)
		assert.Empty(t, result.Warnings)
	})

	t.Run("unreachable provider warns", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer down.Close()

		settings := &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "bad", BaseURL: down.URL}
		result := Init(settings, stubPrompts{}, true)
		assert.Nil(t, result.Provider)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "anthropic unreachable")
	})
}
