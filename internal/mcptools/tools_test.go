package mcptools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// stubCaller records the last invocation and returns a canned result.
type stubCaller struct {
	lastName string
	lastArgs map[string]any
	result   *mcp.CallToolResult
	err      error
}

func (s *stubCaller) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.lastName = name
	s.lastArgs = args
	return s.result, s.err
}

func textResult(texts ...string) *mcp.CallToolResult {
	result := &mcp.CallToolResult{}
	for _, text := range texts {
		result.Content = append(result.Content, mcp.TextContent{Type: "text", Text: text})
	}
	return result
}

func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_leads",
		Description: "Search CRM leads by name or email.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{"type": "string"},
			},
			Required: []string{"query"},
		},
	}
}

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "JSON object",
			input: `{"query": "acme"}`,
			want:  map[string]any{"query": "acme"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "null input",
			input: "null",
			want:  nil,
		},
		{
			name:  "bare string wrapped into single required property",
			input: "acme",
			want:  map[string]any{"query": "acme"},
		},
		{
			name:  "quoted bare string unwrapped",
			input: `"acme"`,
			want:  map[string]any{"query": "acme"},
		},
		{
			name:    "malformed JSON object",
			input:   `{"query": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeArguments(searchTool(), tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeArguments: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("args = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("args[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestDecodeArgumentsBareStringWithoutSingleRequired(t *testing.T) {
	tool := mcp.Tool{
		Name: "create_deal",
		InputSchema: mcp.ToolInputSchema{
			Type:     "object",
			Required: []string{"name", "amount"},
		},
	}

	if _, err := decodeArguments(tool, "acme"); err == nil {
		t.Error("expected error for bare string with multi-property schema")
	}
}

func TestDescribeTool(t *testing.T) {
	desc := describeTool(searchTool())

	if !strings.Contains(desc, "Search CRM leads") {
		t.Errorf("description %q lost the tool description", desc)
	}
	if !strings.Contains(desc, "query") {
		t.Errorf("description %q does not mention the schema properties", desc)
	}
	if !strings.Contains(desc, "Required: query") {
		t.Errorf("description %q does not list required properties", desc)
	}
}

func TestDescribeToolWithoutSchema(t *testing.T) {
	tool := mcp.Tool{Name: "ping", Description: "Check connectivity."}
	if got := describeTool(tool); got != "Check connectivity." {
		t.Errorf("description = %q", got)
	}
}

func TestRemoteToolCall(t *testing.T) {
	caller := &stubCaller{result: textResult("first", "second")}
	tool := &remoteTool{caller: caller, tool: searchTool(), description: "d"}

	got, err := tool.Call(context.Background(), `{"query": "acme"}`)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "first\nsecond" {
		t.Errorf("observation = %q", got)
	}
	if caller.lastName != "search_leads" {
		t.Errorf("called tool %q", caller.lastName)
	}
	if caller.lastArgs["query"] != "acme" {
		t.Errorf("args = %v", caller.lastArgs)
	}
}

func TestRemoteToolCallToolError(t *testing.T) {
	result := textResult("record not found")
	result.IsError = true
	caller := &stubCaller{result: result}
	tool := &remoteTool{caller: caller, tool: searchTool(), description: "d"}

	got, err := tool.Call(context.Background(), `{"query": "acme"}`)
	if err != nil {
		t.Fatalf("tool-level errors must be observations, got error: %v", err)
	}
	if !strings.Contains(got, "record not found") {
		t.Errorf("observation = %q", got)
	}
}

func TestRemoteToolCallTransportError(t *testing.T) {
	caller := &stubCaller{err: errors.New("connection reset")}
	tool := &remoteTool{caller: caller, tool: searchTool(), description: "d"}

	if _, err := tool.Call(context.Background(), `{"query": "acme"}`); err == nil {
		t.Error("expected transport error to propagate")
	}
}

func TestRemoteToolCallInvalidArguments(t *testing.T) {
	caller := &stubCaller{result: textResult("x")}
	tool := &remoteTool{caller: caller, tool: searchTool(), description: "d"}

	got, err := tool.Call(context.Background(), `{"query": `)
	if err != nil {
		t.Fatalf("argument errors must be observations, got error: %v", err)
	}
	if !strings.Contains(got, "invalid arguments") {
		t.Errorf("observation = %q", got)
	}
	if caller.lastName != "" {
		t.Error("remote tool must not be invoked on invalid arguments")
	}
}

func TestAdaptTools(t *testing.T) {
	caller := &stubCaller{result: textResult("x")}
	adapted := adaptTools(caller, []mcp.Tool{searchTool(), {Name: "ping"}})

	if len(adapted) != 2 {
		t.Fatalf("adapted %d tools, want 2", len(adapted))
	}
	if adapted[0].Name() != "search_leads" || adapted[1].Name() != "ping" {
		t.Errorf("tool names = %q, %q", adapted[0].Name(), adapted[1].Name())
	}
}
