package services

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"codepair/internal/agent"
)

const serviceName = "codepair"

// envKeyFor maps a provider id to the environment variable consulted when
// the OS keyring has no entry for it.
func envKeyFor(provider string) string {
	switch agent.ProviderID(provider) {
	case agent.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case agent.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case agent.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return strings.ToUpper(provider) + "_API_KEY"
	}
}

type KeyringService struct{}

func NewKeyringService() *KeyringService {
	return &KeyringService{}
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	if provider == "" {
		return errors.New("provider is required")
	}
	if len(apiKey) == 0 {
		return errors.New("api key is empty")
	}
	return keyring.Set(serviceName, provider, string(apiKey))
}

// GetApiKey reads the key from the OS keyring and falls back to the
// provider's environment variable. An absent key is ("", nil); the caller
// decides whether that is an error.
func (s *KeyringService) GetApiKey(provider string) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}

	key, err := keyring.Get(serviceName, provider)
	if err == nil && key != "" {
		return key, nil
	}
	if env := strings.TrimSpace(os.Getenv(envKeyFor(provider))); env != "" {
		return env, nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", err
	}
	return "", nil
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	if provider == "" {
		return errors.New("provider is required")
	}
	return keyring.Delete(serviceName, provider)
}

// ListApiKeys probes the keyring for each provider a client can be built
// for. The provider set is closed, so no side registry of stored entries
// is kept.
func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	var results []map[string]string
	for _, provider := range agent.Providers() {
		if _, err := keyring.Get(serviceName, string(provider)); err != nil {
			continue
		}
		results = append(results, map[string]string{
			"provider":    string(provider),
			"label":       string(provider) + " API key",
			"description": "API key for " + string(provider) + " used by codepair",
		})
	}
	return results, nil
}
