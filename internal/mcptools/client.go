// Package mcptools connects to a remote MCP server, discovers its tools, and
// adapts them into callable agent tools.
package mcptools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/oauth2"
)

const protocolVersion = "2024-11-05"

// Client wraps an MCP streamable HTTP connection and the discovered tool set.
type Client struct {
	endpoint string
	client   *client.Client
	tools    []mcp.Tool
}

// Connect establishes a connection to the MCP server at endpoint, performs
// the protocol handshake, and lists the available tools.
//
// When tokens is non-nil, an Authorization bearer header built from the
// current access token is attached to every request. Token validity is
// ensured once per connection; the token manager's refresh margin covers the
// session length of a single agent run.
func Connect(ctx context.Context, endpoint string, tokens oauth2.TokenSource, version string) (*Client, error) {
	slog.InfoContext(ctx, "connecting to MCP server", "endpoint", endpoint)

	var opts []transport.StreamableHTTPCOption
	if tokens != nil {
		token, err := tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("obtaining access token for MCP connection: %w", err)
		}
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + token.AccessToken,
		}))
	}

	mcpClient, err := client.NewStreamableHttpClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating streamable HTTP client: %w", err)
	}

	c := &Client{
		endpoint: endpoint,
		client:   mcpClient,
	}

	if err := mcpClient.Start(ctx); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("starting MCP transport: %w", err)
	}

	if err := c.initialize(ctx, version); err != nil {
		mcpClient.Close()
		return nil, err
	}

	if err := c.listTools(ctx); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("initial tool listing failed: %w", err)
	}

	slog.InfoContext(ctx, "MCP tools discovered", "endpoint", endpoint, "tools", len(c.tools))
	return c, nil
}

// initialize performs the MCP protocol handshake.
func (c *Client) initialize(ctx context.Context, version string) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "crmagent",
				Version: version,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	result, err := c.client.Initialize(ctx, req)
	if err != nil {
		return fmt.Errorf("MCP initialize failed: %w", err)
	}

	if result.Capabilities.Tools == nil {
		return fmt.Errorf("MCP server %s does not support the tools capability", c.endpoint)
	}

	slog.DebugContext(ctx, "MCP session initialized",
		"server", result.ServerInfo.Name,
		"server_version", result.ServerInfo.Version,
		"protocol_version", result.ProtocolVersion)
	return nil
}

// listTools fetches and caches the server's tool list.
func (c *Client) listTools(ctx context.Context) error {
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	c.tools = result.Tools
	for _, tool := range c.tools {
		slog.DebugContext(ctx, "discovered tool", "name", tool.Name)
	}
	return nil
}

// Tools returns the discovered tool descriptors.
func (c *Client) Tools() []mcp.Tool {
	return c.tools
}

// CallTool executes a remote tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tool %s failed: %w", name, err)
	}
	return result, nil
}

// Close shuts down the MCP connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
