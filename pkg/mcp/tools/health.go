package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TemplateCounter reports how many library templates are loaded.
type TemplateCounter interface {
	Len() int
}

type healthResult struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Templates int    `json:"templates"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and library size.
func RegisterHealthTool(s *server.MCPServer, version string, templates TemplateCounter) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		health := healthResult{Status: "ok", Version: version}
		if templates != nil {
			health.Templates = templates.Len()
		}
		result, err := json.Marshal(health)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
