package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"slackagent/model"
)

// ParseToolArguments parses a JSON arguments string into a map.
// Malformed or empty input yields an empty map; the tool server reports
// missing arguments back to the model.
func ParseToolArguments(argsJSON string) map[string]any {
	args := make(map[string]any)
	if argsJSON == "" {
		return args
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

func encodeToolArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ConvertToOpenAIMessages converts a transcript to OpenAI chat messages.
// Instructions, when set, become the leading system message.
//
// Tool-invocation records map to an assistant message carrying tool_calls and
// tool results map to "tool" messages keyed by the call ID, which is the
// pairing OpenAI requires.
func ConvertToOpenAIMessages(instructions string, messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if instructions != "" {
		result = append(result, openai.SystemMessage(instructions))
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		case model.RoleToolCall:
			calls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
			for i, call := range msg.ToolCalls {
				calls[i] = openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: encodeToolArguments(call.Arguments),
						},
					},
				}
			}
			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case model.RoleToolResult:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return result
}

// ConvertFromOpenAIToolCalls converts the tool calls of a completion message.
func ConvertFromOpenAIToolCalls(calls []openai.ChatCompletionMessageToolCallUnion) []model.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]model.ToolCall, 0, len(calls))
	for _, call := range calls {
		result = append(result, model.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: ParseToolArguments(call.Function.Arguments),
		})
	}
	return result
}

// ConvertToAnthropicMessages converts a transcript to Anthropic message params.
// System messages are returned separately because Anthropic takes them as a
// request parameter. Consecutive tool results are folded into one user turn.
func ConvertToAnthropicMessages(instructions string, messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	if instructions != "" {
		system = append(system, anthropic.TextBlockParam{Text: instructions})
	}

	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})

		// Anthropic rejects empty text blocks, and an empty final answer
		// stays in the stored history.
		case model.RoleUser:
			if msg.Content == "" {
				continue
			}
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case model.RoleAssistant:
			if msg.Content == "" {
				continue
			}
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))

		case model.RoleToolCall:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))

		case model.RoleToolResult:
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError)
			if n := len(result); n > 0 && result[n-1].Role == anthropic.MessageParamRoleUser && isToolResultTurn(result[n-1]) {
				result[n-1].Content = append(result[n-1].Content, block)
				continue
			}
			result = append(result, anthropic.NewUserMessage(block))
		}
	}
	return result, system
}

func isToolResultTurn(m anthropic.MessageParam) bool {
	for _, block := range m.Content {
		if block.OfToolResult == nil {
			return false
		}
	}
	return len(m.Content) > 0
}

// ConvertFromAnthropicContent splits a response into its text and tool calls.
func ConvertFromAnthropicContent(content []anthropic.ContentBlockUnion) (string, []model.ToolCall) {
	var (
		text  string
		calls []model.ToolCall
	)
	for _, block := range content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text
		case anthropic.ToolUseBlock:
			args := make(map[string]any)
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					args = make(map[string]any)
				}
			}
			calls = append(calls, model.ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	return text, calls
}

// ConvertToOllamaMessages converts a transcript to Ollama chat messages.
func ConvertToOllamaMessages(instructions string, messages []model.Message) []api.Message {
	result := make([]api.Message, 0, len(messages)+1)
	if instructions != "" {
		result = append(result, api.Message{Role: "system", Content: instructions})
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleToolCall:
			result = append(result, api.Message{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: ConvertFromProviderToolCalls(msg.ToolCalls),
			})
		case model.RoleToolResult:
			result = append(result, api.Message{Role: "tool", Content: msg.Content})
		default:
			result = append(result, api.Message{Role: string(msg.Role), Content: msg.Content})
		}
	}
	return result
}

// ConvertToProviderToolCalls converts Ollama tool calls. Ollama does not
// issue call IDs, so one is generated per call.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolCall{
			ID:        "call_" + uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

// ConvertFromProviderToolCalls converts tool calls back to Ollama format.
func ConvertFromProviderToolCalls(providerCalls []model.ToolCall) []api.ToolCall {
	if len(providerCalls) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(providerCalls))
	for i, call := range providerCalls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return result
}
