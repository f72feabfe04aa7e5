package mcp

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

func calculatorTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "calc__add",
		Description: "Add two numbers",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"a": map[string]any{"type": "number", "description": "First operand"},
				"b": map[string]any{"type": "number", "description": "Second operand"},
				"mode": map[string]any{
					"type": "string",
					"enum": []any{"int", "float"},
				},
			},
			Required: []string{"a", "b"},
		},
	}
}

func TestConvertMCPToolsToOllama(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:  "no tools",
			input: nil,
			validate: func(t *testing.T, result []api.Tool) {
				if len(result) != 0 {
					t.Errorf("expected no tools, got %d", len(result))
				}
			},
		},
		{
			name:  "calculator",
			input: []mcptypes.Tool{calculatorTool()},
			validate: func(t *testing.T, result []api.Tool) {
				if len(result) != 1 {
					t.Fatalf("expected 1 tool, got %d", len(result))
				}
				fn := result[0].Function
				if result[0].Type != "function" || fn.Name != "calc__add" {
					t.Errorf("unexpected tool header: %q %q", result[0].Type, fn.Name)
				}
				if len(fn.Parameters.Required) != 2 {
					t.Errorf("expected 2 required params, got %v", fn.Parameters.Required)
				}
				a := fn.Parameters.Properties["a"]
				if len(a.Type) != 1 || a.Type[0] != "number" || a.Description != "First operand" {
					t.Errorf("property a converted wrongly: %+v", a)
				}
				if mode := fn.Parameters.Properties["mode"]; len(mode.Enum) != 2 {
					t.Errorf("enum lost: %+v", mode)
				}
			},
		},
		{
			name: "missing schema type defaults to object",
			input: []mcptypes.Tool{{
				Name:        "ping",
				InputSchema: mcptypes.ToolInputSchema{},
			}},
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Function.Parameters.Type != "object" {
					t.Errorf("expected object, got %q", result[0].Function.Parameters.Type)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, ConvertMCPToolsToOllama(tt.input))
		})
	}
}

func TestOllamaPropertyUnionTypes(t *testing.T) {
	prop := ollamaProperty(map[string]any{
		"type": []any{"string", "null"},
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "integer"},
		},
	})
	if len(prop.Type) != 2 || prop.Type[1] != "null" {
		t.Errorf("union type lost: %v", prop.Type)
	}
	if len(prop.AnyOf) != 2 || prop.AnyOf[1].Type[0] != "integer" {
		t.Errorf("anyOf lost: %+v", prop.AnyOf)
	}
}

func TestConvertMCPToolsToOpenAIFormat(t *testing.T) {
	if got := ConvertMCPToolsToOpenAIFormat(nil); got != nil {
		t.Errorf("expected nil for no tools, got %v", got)
	}

	result := ConvertMCPToolsToOpenAIFormat([]mcptypes.Tool{calculatorTool()})
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}
	fn := result[0].OfFunction
	if fn == nil {
		t.Fatal("expected a function tool")
	}
	if fn.Function.Name != "calc__add" {
		t.Errorf("name = %q", fn.Function.Name)
	}
	if fn.Function.Parameters["type"] != "object" {
		t.Errorf("parameters type = %v", fn.Function.Parameters["type"])
	}
	if _, ok := fn.Function.Parameters["required"]; !ok {
		t.Error("required list dropped")
	}
}

func TestConvertMCPToolsToAnthropicFormat(t *testing.T) {
	if got := ConvertMCPToolsToAnthropicFormat(nil); got != nil {
		t.Errorf("expected nil for no tools, got %v", got)
	}

	result := ConvertMCPToolsToAnthropicFormat([]mcptypes.Tool{calculatorTool()})
	if len(result) != 1 || result[0].OfTool == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	tool := result[0].OfTool
	if tool.Name != "calc__add" {
		t.Errorf("name = %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 2 {
		t.Errorf("required = %v", tool.InputSchema.Required)
	}
}

func TestResultText(t *testing.T) {
	tests := []struct {
		name   string
		result *mcptypes.CallToolResult
		want   string
	}{
		{name: "nil", result: nil, want: ""},
		{name: "single text", result: mcptypes.NewToolResultText("4"), want: "4"},
		{
			name: "multiple text blocks",
			result: &mcptypes.CallToolResult{Content: []mcptypes.Content{
				mcptypes.NewTextContent("line one"),
				mcptypes.NewTextContent("line two"),
			}},
			want: "line one\nline two",
		},
		{
			name: "structured only",
			result: &mcptypes.CallToolResult{
				StructuredContent: map[string]any{"sum": 4},
			},
			want: `{"sum":4}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultText(tt.result); got != tt.want {
				t.Errorf("ResultText() = %q, want %q", got, tt.want)
			}
		})
	}
}
