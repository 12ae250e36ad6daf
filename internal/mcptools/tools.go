package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tmc/langchaingo/tools"
)

// caller abstracts remote tool invocation so adapters can be tested without a
// live MCP connection.
type caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// remoteTool adapts a discovered MCP tool descriptor into a langchaingo tool.
type remoteTool struct {
	caller      caller
	tool        mcp.Tool
	description string
}

// Compile-time check to ensure remoteTool implements tools.Tool
var _ tools.Tool = (*remoteTool)(nil)

// AgentTools adapts the client's discovered tool set for use by the agent.
func AgentTools(c *Client) []tools.Tool {
	return adaptTools(c, c.Tools())
}

func adaptTools(caller caller, descriptors []mcp.Tool) []tools.Tool {
	adapted := make([]tools.Tool, 0, len(descriptors))
	for _, descriptor := range descriptors {
		adapted = append(adapted, &remoteTool{
			caller:      caller,
			tool:        descriptor,
			description: describeTool(descriptor),
		})
	}
	return adapted
}

// describeTool appends the input schema to the tool description so the model
// knows how to shape its arguments.
func describeTool(tool mcp.Tool) string {
	desc := strings.TrimSpace(tool.Description)
	if len(tool.InputSchema.Properties) == 0 {
		return desc
	}

	schema, err := json.Marshal(tool.InputSchema.Properties)
	if err != nil {
		return desc
	}

	var sb strings.Builder
	sb.WriteString(desc)
	sb.WriteString("\nInput must be a JSON object with these properties: ")
	sb.Write(schema)
	if len(tool.InputSchema.Required) > 0 {
		sb.WriteString("\nRequired: ")
		sb.WriteString(strings.Join(tool.InputSchema.Required, ", "))
	}
	return sb.String()
}

func (t *remoteTool) Name() string {
	return t.tool.Name
}

func (t *remoteTool) Description() string {
	return t.description
}

// Call invokes the remote tool. Tool-level failures (IsError results) are
// returned as observations so the agent can react to them; transport failures
// are returned as errors and abort the run.
func (t *remoteTool) Call(ctx context.Context, input string) (string, error) {
	args, err := decodeArguments(t.tool, input)
	if err != nil {
		// Give the model a chance to correct its argument format
		return fmt.Sprintf("invalid arguments: %v", err), nil
	}

	result, err := t.caller.CallTool(ctx, t.tool.Name, args)
	if err != nil {
		return "", err
	}

	text := textContent(result)
	if result.IsError {
		return "tool error: " + text, nil
	}
	if text == "" {
		return "(no output)", nil
	}
	return text, nil
}

// decodeArguments turns the model's raw action input into the argument map
// the remote tool expects. A bare string is accepted when the schema has a
// single required property.
func decodeArguments(tool mcp.Tool, input string) (map[string]any, error) {
	input = strings.TrimSpace(input)
	if input == "" || input == "null" {
		return nil, nil
	}

	if strings.HasPrefix(input, "{") {
		var args map[string]any
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return nil, fmt.Errorf("input is not a valid JSON object: %w", err)
		}
		return args, nil
	}

	if len(tool.InputSchema.Required) == 1 {
		return map[string]any{tool.InputSchema.Required[0]: strings.Trim(input, `"`)}, nil
	}

	return nil, fmt.Errorf("expected a JSON object matching the tool schema, got %q", input)
}

// textContent concatenates the text parts of a tool result.
func textContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
