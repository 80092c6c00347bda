package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/sqlparams/pkg/logging"
)

func serveMCP(t *testing.T, logger *zap.Logger, reqBody, respBody string) *httptest.ResponseRecorder {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(respBody))
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()
	MCPRequestLogger(logger)(handler).ServeHTTP(rec, req)
	return rec
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"extract_sql_parameters","arguments":{"sql":"SELECT :a"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len(), "Should log request and response")

		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "extract_sql_parameters", requestLog.ContextMap()["tool"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("logs JSON-RPC error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"tool not found"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32602), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "tool not found", responseLog.ContextMap()["error_message"])
	})

	t.Run("logs tool error result", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"process_sql_template","arguments":{"sql":"SELECT :a"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"{\"error\":true}"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error result", logs.All()[1].Message)
	})

	t.Run("sanitizes template and parameter values", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		long := strings.Repeat("v", 300)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"process_sql_template","arguments":{`+
				`"sql":"SELECT * FROM t WHERE password=hunter2 AND id = :id",`+
				`"parameters":{"id":"`+long+`","api_token":"abc","n":5},`+
				`"quote_values":true}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{}}`)

		args := logs.All()[0].ContextMap()["arguments"].(map[string]any)
		assert.Equal(t, "SELECT * FROM t WHERE password=[REDACTED] AND id = :id", args["sql"])
		assert.Equal(t, true, args["quote_values"])

		params := args["parameters"].(map[string]any)
		assert.Equal(t, logging.SanitizeValue(long), params["id"])
		assert.Equal(t, logging.RedactedText, params["api_token"])
		assert.Equal(t, float64(5), params["n"])
	})

	t.Run("passes through with nil logger", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		MCPRequestLogger(nil)(handler).ServeHTTP(rec, req)

		assert.True(t, called, "Should pass through to handler")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("handles malformed JSON gracefully", func(t *testing.T) {
		core, _ := observer.New(zapcore.DebugLevel)
		rec := serveMCP(t, zap.New(core), `{invalid json`, `not json either`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "not json either", rec.Body.String())
	})
}

func TestSanitizeArguments(t *testing.T) {
	assert.Nil(t, sanitizeArguments(nil))

	result := sanitizeArguments(map[string]any{
		"password":     "secret",
		"access_token": "xyz789",
		"name":         "orders_by_customer",
		"parameters":   "not-a-map",
	})

	assert.Equal(t, "[REDACTED]", result["password"])
	assert.Equal(t, "[REDACTED]", result["access_token"])
	assert.Equal(t, "orders_by_customer", result["name"])
	assert.Equal(t, "not-a-map", result["parameters"])
}
