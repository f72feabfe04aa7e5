package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"slackagent/mcp"
	"slackagent/model"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.1:latest"
)

// OllamaProvider implements model.Provider against a local Ollama server.
type OllamaProvider struct {
	client  *api.Client
	model   string
	baseURL string
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL. If empty, defaults to "http://localhost:11434".
//   - model: The model name to use. If empty, defaults to "llama3.1:latest".
//
// Returns an error if the baseURL is invalid.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Complete implements model.Provider.Complete. Streaming is disabled so the
// callback fires once, but chunks are accumulated regardless.
func (p *OllamaProvider) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.model,
		Messages: ConvertToOllamaMessages(req.Instructions, req.Messages),
		Stream:   &stream,
		Options:  map[string]any{"temperature": req.Temperature},
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = mcp.ConvertMCPToolsToOllama(req.Tools)
	}

	var (
		content strings.Builder
		calls   []api.ToolCall
	)
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		calls = append(calls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama chat failed: %w", err)
	}

	return &model.Response{
		Content:   content.String(),
		ToolCalls: ConvertToProviderToolCalls(calls),
	}, nil
}

// GetModel implements model.Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.model
}
