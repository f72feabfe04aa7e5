package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"slackagent/mcp"
	"slackagent/model"
)

const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIModel       = "gpt-4o"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "openai/gpt-4o"
)

// OpenAIProvider implements model.Provider with the official OpenAI Go SDK.
// It also serves OpenAI-compatible endpoints such as OpenRouter.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: API base URL (default: "https://api.openai.com/v1")
//   - apiKey: API key (required)
//   - model: Model to use (default: "gpt-4o")
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// NewOpenRouterProvider points the OpenAI client at OpenRouter.
func NewOpenRouterProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if model == "" {
		model = defaultOpenRouterModel
	}
	return NewOpenAIProvider(baseURL, apiKey, model)
}

// Complete implements model.Provider.Complete.
func (p *OpenAIProvider) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    ConvertToOpenAIMessages(req.Instructions, req.Messages),
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(req.Temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = mcp.ConvertMCPToolsToOpenAIFormat(req.Tools)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	msg := completion.Choices[0].Message
	return &model.Response{
		Content:   msg.Content,
		ToolCalls: ConvertFromOpenAIToolCalls(msg.ToolCalls),
	}, nil
}

// GetModel implements model.Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}
