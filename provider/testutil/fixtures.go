package testutil

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"slackagent/model"
)

// TestHistory returns a sample filtered conversation.
func TestHistory() model.History {
	return model.History{
		model.NewUserMessage("hi"),
		model.NewAssistantMessage("hi!"),
	}
}

// TestTranscript returns a transcript with one tool round trip.
func TestTranscript() model.History {
	return model.History{
		model.NewUserMessage("what's 2+2?"),
		model.NewToolCallMessage("", []model.ToolCall{
			{ID: "call_1", Name: "calc__add", Arguments: map[string]any{"a": 2.0, "b": 2.0}},
		}),
		model.NewToolResultMessage("call_1", "calc__add", "4", false),
		model.NewAssistantMessage("4"),
	}
}

// AddTool returns the namespaced calculator tool used across tests.
func AddTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "calc__add",
		Description: "Add two numbers",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			Required: []string{"a", "b"},
		},
	}
}

// ToolCallResponse asks for a single tool invocation.
func ToolCallResponse(id, name string, args map[string]any) *model.Response {
	return &model.Response{ToolCalls: []model.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

// TextResponse is a final answer.
func TextResponse(text string) *model.Response {
	return &model.Response{Content: text}
}
