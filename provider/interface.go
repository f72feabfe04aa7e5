// Package provider implements model.Provider for the supported LLM backends.
//
// Each provider turns a provider-agnostic model.Request (instructions,
// transcript, available tools) into one non-streaming API call and maps the
// reply back to a model.Response. The agent loop in package agent only ever
// sees model.Provider, so backends can be swapped through configuration.
//
// # Type Conversions
//
// All conversions between model types and SDK types live in conversions.go:
//   - ConvertToOpenAIMessages / ConvertFromOpenAIToolCalls
//   - ConvertToAnthropicMessages / ConvertFromAnthropicContent
//   - ConvertToOllamaMessages / ConvertToProviderToolCalls
//
// Tool definitions are converted by the mcp package.
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeOpenAI,
//	    Model:  "gpt-4o",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    // handle error
//	}
//	resp, err := p.Complete(ctx, model.Request{Messages: history, Tools: tools})
package provider

// Note: The Provider interface is defined in the model package (model/provider.go)
// to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeOllama     ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // Unused for Ollama
}

// RequiresAPIKey reports whether the provider type authenticates with a key.
func (t ProviderType) RequiresAPIKey() bool {
	return t != ProviderTypeOllama
}

// APIKeyEnv names the environment variable holding the provider's API key.
func (t ProviderType) APIKeyEnv() string {
	switch t {
	case ProviderTypeOpenAI:
		return "OPENAI_API_KEY"
	case ProviderTypeOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderTypeAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// DefaultModel is the model used when none is configured.
func (t ProviderType) DefaultModel() string {
	switch t {
	case ProviderTypeOpenAI:
		return defaultOpenAIModel
	case ProviderTypeOpenRouter:
		return defaultOpenRouterModel
	case ProviderTypeAnthropic:
		return defaultAnthropicModel
	case ProviderTypeOllama:
		return defaultOllamaModel
	default:
		return ""
	}
}
