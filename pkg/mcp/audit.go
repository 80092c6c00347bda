package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/audit"
	"github.com/ekaya-inc/sqlparams/pkg/auth"
	"github.com/ekaya-inc/sqlparams/pkg/logging"
)

// Tool call event types.
const (
	EventToolCall            = "tool_call"
	EventToolError           = "tool_error"
	EventSQLInjectionAttempt = "sql_injection_attempt"
	EventAuthFailure         = "auth_failure"
)

// Security levels attached to tool call events.
const (
	SecurityNormal   = "normal"
	SecurityWarning  = "warning"
	SecurityCritical = "critical"
)

// ToolCallEvent is one audited MCP tool invocation.
type ToolCallEvent struct {
	EventType     string
	ToolName      string
	UserID        string
	RequestID     string
	RequestParams map[string]any
	WasSuccessful bool
	DurationMs    int64
	ResultSummary map[string]any
	ErrorMessage  string
	SecurityLevel string
	SecurityFlags []string
}

// ToolCallAuditor logs every MCP tool call with timing, sanitized arguments
// and a security classification.
type ToolCallAuditor struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by JSON-RPC request ID.
	startTimes sync.Map
}

// NewToolCallAuditor creates a ToolCallAuditor.
func NewToolCallAuditor(logger *zap.Logger) *ToolCallAuditor {
	return &ToolCallAuditor{
		logger: logger.Named("mcp-audit"),
	}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *ToolCallAuditor) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolCallAuditor) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *ToolCallAuditor) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	event := a.buildEvent(ctx, id, req)
	event.EventType = EventToolCall
	event.WasSuccessful = result == nil || !result.IsError
	event.ResultSummary = summarizeResult(result)

	classifyToolCallSecurity(event, result)
	a.record(event)
}

func (a *ToolCallAuditor) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}

	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	event := a.buildEvent(ctx, id, req)
	event.EventType = EventToolError
	event.WasSuccessful = false
	event.ErrorMessage = logging.SanitizeError(err)

	classifyErrorSecurity(event, event.ErrorMessage)
	a.record(event)
}

func (a *ToolCallAuditor) loadAndDeleteStart(id any) time.Time {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time)
	}
	return time.Now()
}

func (a *ToolCallAuditor) buildEvent(ctx context.Context, id any, req *mcplib.CallToolRequest) *ToolCallEvent {
	event := &ToolCallEvent{
		DurationMs:    time.Since(a.loadAndDeleteStart(id)).Milliseconds(),
		SecurityLevel: SecurityNormal,
	}
	if req != nil {
		event.ToolName = req.Params.Name
		event.RequestParams = sanitizeParams(req.Params.Arguments)
	}
	if claims, ok := auth.GetClaims(ctx); ok {
		event.UserID = claims.Subject
	}
	if requestID := audit.RequestIDFromContext(ctx); requestID != uuid.Nil {
		event.RequestID = requestID.String()
	}
	return event
}

func (a *ToolCallAuditor) record(event *ToolCallEvent) {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.String("tool", event.ToolName),
		zap.Bool("success", event.WasSuccessful),
		zap.Int64("duration_ms", event.DurationMs),
		zap.String("security_level", event.SecurityLevel),
		zap.Any("params", event.RequestParams),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.ResultSummary != nil {
		fields = append(fields, zap.Any("result", event.ResultSummary))
	}
	if event.ErrorMessage != "" {
		fields = append(fields, zap.String("error", event.ErrorMessage))
	}
	if len(event.SecurityFlags) > 0 {
		fields = append(fields, zap.Strings("security_flags", event.SecurityFlags))
	}

	switch event.SecurityLevel {
	case SecurityCritical:
		a.logger.Error("MCP tool call", fields...)
	case SecurityWarning:
		a.logger.Warn("MCP tool call", fields...)
	default:
		a.logger.Info("MCP tool call", fields...)
	}
}

// RecordAuthFailure logs a rejected MCP authentication attempt.
func (a *ToolCallAuditor) RecordAuthFailure(userID, reason, clientIP string) {
	a.logger.Warn("MCP authentication failed",
		zap.String("event_type", EventAuthFailure),
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.String("client_ip", clientIP),
		zap.String("security_level", SecurityWarning),
		zap.Strings("security_flags", []string{"auth_failure"}),
	)
}

// maxSQLSize is the maximum size of SQL strings kept in audit entries.
const maxSQLSize = 10240 // 10KB

// sqlStringLiteralPattern matches SQL string literals including '' escapes.
var sqlStringLiteralPattern = regexp.MustCompile(`'(?:[^']*(?:'')?)*[^']*'`)

// sanitizeParams sanitizes tool arguments before they are logged.
// Applies: SQL truncation, string literal redaction, sensitive value hashing.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if logging.IsSensitiveKey(key) {
		return hashSensitiveValue(value)
	}

	switch val := value.(type) {
	case string:
		return sanitizeStringParam(key, val)
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

func sanitizeStringParam(key string, val string) string {
	if len(val) > maxSQLSize {
		val = val[:maxSQLSize] + "...[truncated]"
	}
	if isSQLParam(key) {
		val = redactSQLStringLiterals(val)
	}
	return val
}

// isSQLParam returns true if a parameter key likely contains SQL.
func isSQLParam(key string) bool {
	lower := strings.ToLower(key)
	return lower == "sql" || lower == "query" || strings.HasSuffix(lower, "_sql") || strings.HasSuffix(lower, "_query")
}

// redactSQLStringLiterals replaces string literal values in SQL with '***',
// preserving the statement structure.
func redactSQLStringLiterals(sql string) string {
	return sqlStringLiteralPattern.ReplaceAllString(sql, "'***'")
}

// hashSensitiveValue returns a SHA-256 prefix so entries can be correlated
// without the value itself.
func hashSensitiveValue(value any) string {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	default:
		str = fmt.Sprintf("%v", v)
	}
	hash := sha256.Sum256([]byte(str))
	return "sha256:" + hex.EncodeToString(hash[:8])
}

// summarizeResult creates a compact summary of the tool result.
func summarizeResult(result *mcplib.CallToolResult) map[string]any {
	if result == nil {
		return nil
	}

	summary := map[string]any{
		"is_error": result.IsError,
	}

	if len(result.Content) > 0 {
		summary["content_count"] = len(result.Content)
		for _, c := range result.Content {
			if tc, ok := c.(mcplib.TextContent); ok {
				summary["preview"] = logging.SanitizeQuery(tc.Text)
				break
			}
		}
	}

	return summary
}

// classifyToolCallSecurity inspects an error result for security-relevant
// codes such as injection_detected.
func classifyToolCallSecurity(event *ToolCallEvent, result *mcplib.CallToolResult) {
	if result == nil || !result.IsError {
		return
	}

	for _, c := range result.Content {
		tc, ok := c.(mcplib.TextContent)
		if !ok {
			continue
		}
		text := strings.ToLower(tc.Text)

		if strings.Contains(text, "injection") {
			event.EventType = EventSQLInjectionAttempt
			event.SecurityLevel = SecurityCritical
			event.SecurityFlags = append(event.SecurityFlags, "sql_injection_attempt")
			return
		}
		if strings.Contains(text, "authentication_required") || strings.Contains(text, "unauthorized") {
			event.SecurityLevel = SecurityWarning
			event.SecurityFlags = append(event.SecurityFlags, "unauthorized_access")
			return
		}
	}
}

// classifyErrorSecurity upgrades an error event's classification from its message.
func classifyErrorSecurity(event *ToolCallEvent, errMsg string) {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "injection") {
		event.EventType = EventSQLInjectionAttempt
		event.SecurityLevel = SecurityCritical
		event.SecurityFlags = append(event.SecurityFlags, "sql_injection_attempt")
	} else if strings.Contains(lower, "authentication") || strings.Contains(lower, "unauthorized") {
		event.SecurityLevel = SecurityWarning
		event.SecurityFlags = append(event.SecurityFlags, "auth_failure")
	}
}
