// Package agent runs the model/tool loop for one conversation turn.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"slackagent/mcp"
	"slackagent/model"
)

const (
	DefaultName         = "slack-agent"
	DefaultInstructions = "You are a Slack agent."
	DefaultModel        = "gpt-4o"
	DefaultTemperature  = 0.0
	DefaultMaxTurns     = 10
)

// Config is fixed at construction.
type Config struct {
	Name         string
	Instructions string
	Model        string
	Temperature  float64
	MaxTurns     int
}

// DefaultConfig returns the stock Slack agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:         DefaultName,
		Instructions: DefaultInstructions,
		Model:        DefaultModel,
		Temperature:  DefaultTemperature,
		MaxTurns:     DefaultMaxTurns,
	}
}

// ToolSet is what the agent needs from the tool server manager.
type ToolSet interface {
	Tools(ctx context.Context) ([]mcptypes.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)
}

// Result is the outcome of a successful run.
type Result struct {
	FinalOutput string
	// Transcript is the input followed by every message produced during the
	// run, tool chatter included.
	Transcript model.History
	Turns      int
}

type Agent struct {
	cfg      Config
	provider model.Provider
	tools    ToolSet
	logger   *slog.Logger
}

// New builds an agent. tools may be nil when no tool servers are configured.
func New(cfg Config, provider model.Provider, tools ToolSet, logger *slog.Logger) *Agent {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:      cfg,
		provider: provider,
		tools:    tools,
		logger:   logger.With("component", "agent", "agent", cfg.Name),
	}
}

// Config returns a copy of the agent configuration.
func (a *Agent) Config() Config { return a.cfg }

// Run feeds input to the model and executes requested tools until the model
// answers without tool calls. The input is never modified.
func (a *Agent) Run(ctx context.Context, input model.History) (*Result, error) {
	tools, err := a.listTools(ctx)
	if err != nil {
		return nil, &InvocationError{Agent: a.cfg.Name, Err: fmt.Errorf("list tools: %w", err)}
	}

	transcript := input.Clone()
	for turn := 1; turn <= a.cfg.MaxTurns; turn++ {
		resp, err := a.provider.Complete(ctx, model.Request{
			Instructions: a.cfg.Instructions,
			Messages:     transcript,
			Tools:        tools,
			Temperature:  a.cfg.Temperature,
		})
		if err != nil {
			return nil, &InvocationError{Agent: a.cfg.Name, Turn: turn, Err: err}
		}
		if resp == nil {
			return nil, &InvocationError{Agent: a.cfg.Name, Turn: turn, Err: fmt.Errorf("provider returned no response")}
		}

		if len(resp.ToolCalls) == 0 {
			transcript = append(transcript, model.NewAssistantMessage(resp.Content))
			a.logger.Debug("agent run finished", "turns", turn)
			return &Result{FinalOutput: resp.Content, Transcript: transcript, Turns: turn}, nil
		}

		a.logger.Debug("model requested tools", "turn", turn, "count", len(resp.ToolCalls))
		transcript = append(transcript, model.NewToolCallMessage(resp.Content, resp.ToolCalls))

		results, err := a.callTools(ctx, resp.ToolCalls)
		if err != nil {
			return nil, &InvocationError{Agent: a.cfg.Name, Turn: turn, Err: err}
		}
		transcript = append(transcript, results...)
	}

	return nil, &InvocationError{Agent: a.cfg.Name, Turn: a.cfg.MaxTurns, Err: ErrMaxTurns}
}

func (a *Agent) listTools(ctx context.Context) ([]mcptypes.Tool, error) {
	if a.tools == nil {
		return nil, nil
	}
	return a.tools.Tools(ctx)
}

// callTools runs the calls of one model response concurrently. Tool failures
// are reported back to the model as error results; only cancellation of ctx
// aborts the run.
func (a *Agent) callTools(ctx context.Context, calls []model.ToolCall) ([]model.Message, error) {
	results := make([]model.Message, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call model.ToolCall) {
			defer wg.Done()
			results[i] = a.callTool(ctx, call)
		}(i, call)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Agent) callTool(ctx context.Context, call model.ToolCall) model.Message {
	if a.tools == nil {
		return model.NewToolResultMessage(call.ID, call.Name, fmt.Sprintf("Error: tool %q is not available", call.Name), true)
	}

	res, err := a.tools.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		a.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return model.NewToolResultMessage(call.ID, call.Name, "Error: "+err.Error(), true)
	}
	if res == nil {
		return model.NewToolResultMessage(call.ID, call.Name, "", false)
	}
	return model.NewToolResultMessage(call.ID, call.Name, mcp.ResultText(res), res.IsError)
}
