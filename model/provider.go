package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (OpenAI, Anthropic, Ollama)
// using provider-agnostic types from the model layer.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the agent uses the
// Provider interface without importing the provider package.
type Provider interface {
	// Complete sends one request and returns the model's full response.
	// Implementations must not mutate req.Messages.
	Complete(ctx context.Context, req Request) (*Response, error)

	// GetModel returns the model identifier used for API calls.
	GetModel() string
}

// Request is a single model invocation.
type Request struct {
	Instructions string
	Messages     History
	Tools        []mcptypes.Tool
	Temperature  float64
}

// Response is the model's answer to a Request. A response with ToolCalls asks
// the caller to run the tools and invoke the model again.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}
