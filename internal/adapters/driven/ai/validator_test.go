package ai

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/distill/internal/core/domain"
)

func TestConfigValidator_ValidateLLM(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	validator := NewConfigValidator()

	t.Run("nil config is valid", func(t *testing.T) {
		assert.NoError(t, validator.ValidateLLM(nil))
	})

	t.Run("unconfigured provider is valid", func(t *testing.T) {
		assert.NoError(t, validator.ValidateLLM(&domain.LLMSettings{Model: "x"}))
	})

	t.Run("reachable provider", func(t *testing.T) {
		status = http.StatusOK
		err := validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
		assert.NoError(t, err)
	})

	t.Run("rejected key", func(t *testing.T) {
		status = http.StatusUnauthorized
		err := validator.ValidateLLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", BaseURL: srv.URL})
		assert.True(t, errors.Is(err, domain.ErrLLMUnavailable))
	})
}
