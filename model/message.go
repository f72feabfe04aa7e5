package model

import "time"

// Role tags a Message with the kind of turn it records.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolCall   Role = "tool_call"
	RoleToolResult Role = "tool_result"
)

// ToolCall is a provider-agnostic request from the model to run one tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message represents one turn unit in a conversation
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"` // Set on RoleToolCall only
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewToolCallMessage records the tool invocations requested by one model
// response. Content carries any text the model emitted alongside the calls.
func NewToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleToolCall, Content: content, ToolCalls: calls, Timestamp: time.Now()}
}

func NewToolResultMessage(toolCallID, toolName, result string, isError bool) Message {
	return Message{
		Role:       RoleToolResult,
		Content:    result,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		IsError:    isError,
		Timestamp:  time.Now(),
	}
}

// IsTool reports whether the message is transient tool chatter.
func (m Message) IsTool() bool {
	return m.Role == RoleToolCall || m.Role == RoleToolResult
}

func (m Message) clone() Message {
	if len(m.ToolCalls) == 0 {
		return m
	}
	calls := make([]ToolCall, len(m.ToolCalls))
	for i, c := range m.ToolCalls {
		calls[i] = c
		if c.Arguments != nil {
			args := make(map[string]any, len(c.Arguments))
			for k, v := range c.Arguments {
				args[k] = v
			}
			calls[i].Arguments = args
		}
	}
	m.ToolCalls = calls
	return m
}
