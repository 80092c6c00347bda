package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/auth"
)

// TestServer_HTTPContextPropagation verifies that JWT claims from HTTP request context
// are properly propagated to MCP tool handlers.
func TestServer_HTTPContextPropagation(t *testing.T) {
	var receivedClaims *auth.Claims

	s := NewServer("test-server", "1.0.0", zap.NewNop(), nil)

	tool := mcp.NewTool("test-claims", mcp.WithDescription("Test tool that reads claims from context"))
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		claims, ok := auth.GetClaims(ctx)
		if ok {
			receivedClaims = claims
		}
		return mcp.NewToolResultText("ok"), nil
	})

	httpServer := s.NewStreamableHTTPServer()

	toolCallRequest := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]any{
			"name": "test-claims",
		},
		"id": 1,
	}
	body, _ := json.Marshal(toolCallRequest)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// Inject claims the way the auth middleware does
	claims := &auth.Claims{Email: "analyst@example.com"}
	claims.Subject = "user-42"
	req = req.WithContext(auth.WithClaims(req.Context(), claims, "token"))

	rec := httptest.NewRecorder()
	httpServer.ServeHTTP(rec, req)

	if receivedClaims == nil {
		t.Fatal("expected tool handler to receive claims from HTTP context, but got nil")
	}
	if receivedClaims.Subject != "user-42" {
		t.Errorf("expected subject %q, got %q", "user-42", receivedClaims.Subject)
	}
}
