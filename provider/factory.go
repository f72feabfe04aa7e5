package provider

import (
	"fmt"

	"slackagent/model"
)

// NewProvider creates a provider based on configuration.
//
// Supported provider types:
//   - ProviderTypeOpenAI: OpenAI API (default)
//   - ProviderTypeOpenRouter: OpenRouter, through the OpenAI-compatible client
//   - ProviderTypeAnthropic: Anthropic API
//   - ProviderTypeOllama: Local Ollama server
//
// Returns an error if the type is unknown or the provider constructor fails
// (missing API key, invalid URL).
func NewProvider(cfg Config) (model.Provider, error) {
	var (
		p   model.Provider
		err error
	)
	// Each branch checks err itself so a typed nil never escapes as a
	// non-nil interface.
	switch cfg.Type {
	case ProviderTypeOpenAI, "":
		var op *OpenAIProvider
		if op, err = NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model); err == nil {
			p = op
		}
	case ProviderTypeOpenRouter:
		var op *OpenAIProvider
		if op, err = NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model); err == nil {
			p = op
		}
	case ProviderTypeAnthropic:
		var ap *AnthropicProvider
		if ap, err = NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model); err == nil {
			p = ap
		}
	case ProviderTypeOllama:
		var lp *OllamaProvider
		if lp, err = NewOllamaProvider(cfg.BaseURL, cfg.Model); err == nil {
			p = lp
		}
	default:
		err = fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// IsValidType reports whether t names a supported provider.
func IsValidType(t ProviderType) bool {
	switch t {
	case ProviderTypeOpenAI, ProviderTypeOpenRouter, ProviderTypeAnthropic, ProviderTypeOllama:
		return true
	default:
		return false
	}
}
