package tools

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/sqlparams/pkg/apperrors"
	"github.com/ekaya-inc/sqlparams/pkg/services"
	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
	"github.com/ekaya-inc/sqlparams/pkg/templates"
)

// ErrorResponse represents a structured error in tool results.
// This is used to return actionable error information to the model
// as a successful tool result, ensuring error details are visible
// rather than being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable/actionable errors the caller can fix
// (e.g., a missing parameter value, an unknown template name).
//
// Do NOT use this for system failures - those should still return Go errors.
//
// Example:
//
//	if name == "" {
//	    return NewErrorResult("invalid_parameters", "name cannot be empty"), nil
//	}
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
//
// Example:
//
//	return NewErrorResultWithDetails(
//	    "missing_parameter",
//	    "missing value for parameter: id",
//	    map[string]any{"parameter": "id"},
//	), nil
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewServiceErrorResult converts a template service error the caller can act
// on into an error result. Returns nil for anything else; the caller should
// return a Go error instead.
func NewServiceErrorResult(err error) *mcp.CallToolResult {
	var missing *sqlparams.MissingParameterError
	var injection *services.InjectionError
	var invalid *sqlparams.ValidationError

	switch {
	case errors.As(err, &missing):
		return NewErrorResultWithDetails("missing_parameter", err.Error(),
			map[string]any{"parameter": missing.Name})
	case errors.As(err, &injection):
		return NewErrorResultWithDetails("injection_detected", err.Error(),
			map[string]any{"parameters": injection.Params()})
	case errors.As(err, &invalid):
		return NewErrorResultWithDetails("invalid_parameters", err.Error(),
			map[string]any{"problems": invalid.Problems})
	case errors.Is(err, services.ErrTemplateTooLarge):
		return NewErrorResult("template_too_large", err.Error())
	case errors.Is(err, templates.ErrTemplateNotFound):
		return NewErrorResult("template_not_found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		return NewErrorResult("invalid_parameters", err.Error())
	}
	return nil
}

// inputErrorPatterns are substrings that indicate an error is due to user input
// rather than a server failure.
var inputErrorPatterns = []string{
	"not found",
	"invalid input",
	"missing required",
	"cannot be empty",
	"must be",
}

// IsInputError returns true if the error appears to be caused by user input
// rather than a server failure. These errors should be logged at DEBUG level,
// not ERROR level.
func IsInputError(err error) bool {
	if err == nil {
		return false
	}

	if NewServiceErrorResult(err) != nil {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range inputErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
