package model

import (
	"reflect"
	"testing"
)

func roles(h History) []Role {
	out := make([]Role, len(h))
	for i, m := range h {
		out[i] = m.Role
	}
	return out
}

func TestFilterHistory(t *testing.T) {
	call := NewToolCallMessage("", []ToolCall{{ID: "call_1", Name: "calc__add", Arguments: map[string]any{"a": 2, "b": 2}}})
	result := NewToolResultMessage("call_1", "calc__add", "4", false)

	tests := []struct {
		name     string
		input    History
		expected []string
	}{
		{
			name:     "nil history",
			input:    nil,
			expected: []string{},
		},
		{
			name:     "only user and assistant",
			input:    History{NewUserMessage("hi"), NewAssistantMessage("hi!")},
			expected: []string{"user:hi", "assistant:hi!"},
		},
		{
			name: "tool chatter removed",
			input: History{
				NewUserMessage("hi"),
				NewAssistantMessage("hi!"),
				NewUserMessage("what's 2+2?"),
				call,
				result,
				NewAssistantMessage("4"),
			},
			expected: []string{"user:hi", "assistant:hi!", "user:what's 2+2?", "assistant:4"},
		},
		{
			name:     "only tool chatter",
			input:    History{call, result},
			expected: []string{},
		},
		{
			name:     "system messages are not persisted",
			input:    History{{Role: RoleSystem, Content: "be nice"}, NewUserMessage("x")},
			expected: []string{"user:x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterHistory(tt.input)
			flat := make([]string, len(got))
			for i, m := range got {
				flat[i] = string(m.Role) + ":" + m.Content
			}
			if !reflect.DeepEqual(flat, tt.expected) {
				t.Errorf("FilterHistory() = %v, want %v", flat, tt.expected)
			}
			for _, m := range got {
				if m.IsTool() {
					t.Errorf("tool message survived filtering: %+v", m)
				}
			}
		})
	}
}

func TestFilterHistoryIdempotent(t *testing.T) {
	h := History{
		NewUserMessage("a"),
		NewToolCallMessage("thinking", []ToolCall{{ID: "1", Name: "x"}}),
		NewToolResultMessage("1", "x", "ok", false),
		NewAssistantMessage("b"),
		NewUserMessage("c"),
		NewToolResultMessage("2", "y", "boom", true),
		NewAssistantMessage("d"),
	}

	once := FilterHistory(h)
	twice := FilterHistory(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent:\nonce:  %v\ntwice: %v", roles(once), roles(twice))
	}
	if want := []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant}; !reflect.DeepEqual(roles(once), want) {
		t.Errorf("roles = %v, want %v", roles(once), want)
	}
}

func TestFilterHistoryDoesNotAliasInput(t *testing.T) {
	h := History{NewUserMessage("a"), NewAssistantMessage("b")}
	got := FilterHistory(h)
	got[0].Content = "changed"
	if h[0].Content != "a" {
		t.Errorf("input mutated through filtered copy: %q", h[0].Content)
	}
}

func TestHistoryClone(t *testing.T) {
	h := History{NewToolCallMessage("", []ToolCall{{ID: "1", Name: "x", Arguments: map[string]any{"k": "v"}}})}
	c := h.Clone()
	c[0].ToolCalls[0].Arguments["k"] = "changed"
	if h[0].ToolCalls[0].Arguments["k"] != "v" {
		t.Error("Clone shares tool call arguments with the original")
	}
	if History(nil).Clone() != nil {
		t.Error("Clone of nil history should be nil")
	}
}

func TestLastAssistant(t *testing.T) {
	h := History{NewUserMessage("q"), NewAssistantMessage("first"), NewUserMessage("q2"), NewAssistantMessage("second")}
	got, ok := h.LastAssistant()
	if !ok || got != "second" {
		t.Errorf("LastAssistant() = %q, %v; want second, true", got, ok)
	}
	if _, ok := (History{NewUserMessage("q")}).LastAssistant(); ok {
		t.Error("LastAssistant() found an answer in a history without one")
	}
}

func TestAppendDoesNotMutate(t *testing.T) {
	base := make(History, 1, 4)
	base[0] = NewUserMessage("a")
	x := base.Append(NewAssistantMessage("x"))
	y := base.Append(NewAssistantMessage("y"))
	if x[1].Content != "x" || y[1].Content != "y" {
		t.Errorf("Append shares storage: x=%q y=%q", x[1].Content, y[1].Content)
	}
	if len(base) != 1 {
		t.Errorf("base length changed to %d", len(base))
	}
}
