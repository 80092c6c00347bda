package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/jsonutil"
)

// trimString removes leading and trailing whitespace from a string.
// This is a common helper used across MCP tool parameter validation.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// getOptionalBool extracts an optional boolean argument from the request.
func getOptionalBool(req mcp.CallToolRequest, key string) (bool, bool) {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(bool); ok {
			return val, true
		}
	}
	return false, false
}

// extractObjectParam reads an object argument. Some clients send objects as
// stringified JSON; those are parsed and a warning is logged. An absent key
// returns nil, nil.
func extractObjectParam(args map[string]any, key string, logger *zap.Logger) (map[string]any, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("parameter %q could not be parsed: send it as a native JSON object", key)
		}
		if logger != nil {
			logger.Warn("Parsed stringified JSON object argument", zap.String("param", key))
		}
		if parsed == nil {
			parsed = map[string]any{}
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("parameter %q must be an object, got %T", key, raw)
	}
}

// parameterValues reads the "parameters" argument as substitution values.
// Numbers and booleans are converted to their text form.
func parameterValues(req mcp.CallToolRequest, logger *zap.Logger) (map[string]string, error) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil, nil
	}
	obj, err := extractObjectParam(args, "parameters", logger)
	if err != nil {
		return nil, err
	}
	values, err := jsonutil.StringValues(obj)
	if err != nil {
		return nil, fmt.Errorf("parameter \"parameters\": %w", err)
	}
	return values, nil
}
