package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/models"
	"github.com/ekaya-inc/sqlparams/pkg/services"
	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
)

// SQLTemplateToolDeps contains dependencies for the SQL template tools.
type SQLTemplateToolDeps struct {
	TemplateService services.TemplateService
	Logger          *zap.Logger
}

// sqlTemplateToolNames lists all tools registered by RegisterSQLTemplateTools.
var sqlTemplateToolNames = []string{
	"extract_sql_parameters",
	"process_sql_template",
	"validate_sql_parameters",
	"list_sql_templates",
	"process_named_template",
}

// RegisterSQLTemplateTools registers the parameter extraction and substitution tools.
func RegisterSQLTemplateTools(s *server.MCPServer, deps *SQLTemplateToolDeps) {
	registerExtractSQLParametersTool(s, deps)
	registerProcessSQLTemplateTool(s, deps)
	registerValidateSQLParametersTool(s, deps)
	registerListSQLTemplatesTool(s, deps)
	registerProcessNamedTemplateTool(s, deps)
}

type parametersResult struct {
	Parameters []models.SQLParameter `json:"parameters"`
}

type validateResult struct {
	Valid    bool                         `json:"valid"`
	Problems []sqlparams.ParameterProblem `json:"problems"`
}

type templateInfo struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	SQL         string                `json:"sql"`
	Parameters  []models.SQLParameter `json:"parameters"`
}

type listTemplatesResult struct {
	Templates []templateInfo `json:"templates"`
}

func registerExtractSQLParametersTool(s *server.MCPServer, deps *SQLTemplateToolDeps) {
	tool := mcp.NewTool(
		"extract_sql_parameters",
		mcp.WithDescription(
			"List the :name placeholders in a SQL template in first-occurrence order. "+
				"Each entry reports the @set default, declared type, allowed values for enums "+
				"and how many times the placeholder appears.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("SQL template text, optionally with @set name[:type] = value directive lines"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		params, err := deps.TemplateService.Extract(ctx, sql)
		if err != nil {
			return serviceError(deps, "extract_sql_parameters", err)
		}

		return jsonResult(parametersResult{Parameters: nonNilParams(params)})
	})
}

func registerProcessSQLTemplateTool(s *server.MCPServer, deps *SQLTemplateToolDeps) {
	tool := mcp.NewTool(
		"process_sql_template",
		mcp.WithDescription(
			"Substitute parameter values into a SQL template. "+
				"Supplied values win over @set defaults; directive lines are removed from the output. "+
				"Values are inserted verbatim unless quote_values is true. "+
				"Fails with missing_parameter when a placeholder has no value and no default.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("SQL template text"),
		),
		mcp.WithObject(
			"parameters",
			mcp.Description("Parameter values keyed by name (e.g., {\"status\": \"open\", \"limit\": 10})"),
		),
		mcp.WithBoolean(
			"quote_values",
			mcp.Description("Quote and escape supplied values as SQL string literals, except for int/number/bool parameters (default: false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		values, err := parameterValues(req, deps.Logger)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		quote, _ := getOptionalBool(req, "quote_values")

		result, err := deps.TemplateService.Process(ctx, &services.ProcessRequest{
			SQL:         sql,
			Parameters:  values,
			QuoteValues: quote,
		})
		if err != nil {
			return serviceError(deps, "process_sql_template", err)
		}

		result.Parameters = nonNilParams(result.Parameters)
		return jsonResult(result)
	})
}

func registerValidateSQLParametersTool(s *server.MCPServer, deps *SQLTemplateToolDeps) {
	tool := mcp.NewTool(
		"validate_sql_parameters",
		mcp.WithDescription(
			"Check parameter values against a SQL template without substituting them. "+
				"Reports placeholders with no value and enum parameters given a value outside their allowed set.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("SQL template text"),
		),
		mcp.WithObject(
			"parameters",
			mcp.Description("Parameter values keyed by name"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		values, err := parameterValues(req, deps.Logger)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		err = deps.TemplateService.Validate(ctx, sql, values)
		var vErr *sqlparams.ValidationError
		switch {
		case err == nil:
			return jsonResult(validateResult{Valid: true, Problems: []sqlparams.ParameterProblem{}})
		case errors.As(err, &vErr):
			return jsonResult(validateResult{Valid: false, Problems: vErr.Problems})
		default:
			return serviceError(deps, "validate_sql_parameters", err)
		}
	})
}

func registerListSQLTemplatesTool(s *server.MCPServer, deps *SQLTemplateToolDeps) {
	tool := mcp.NewTool(
		"list_sql_templates",
		mcp.WithDescription(
			"List the named SQL templates in the library with their parameters. "+
				"Optionally filter by tags. Use process_named_template to run one.",
		),
		mcp.WithArray(
			"tags",
			mcp.Description("Optional: return templates carrying ANY of these tags"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		details, err := deps.TemplateService.ListTemplates(ctx)
		if err != nil {
			return serviceError(deps, "list_sql_templates", err)
		}

		var tags []string
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if tagsArray, ok := args["tags"].([]any); ok {
				for _, tag := range tagsArray {
					if str, ok := tag.(string); ok {
						tags = append(tags, str)
					}
				}
			}
		}

		result := listTemplatesResult{Templates: make([]templateInfo, 0, len(details))}
		for _, d := range details {
			if len(tags) > 0 && !hasAnyTag(d.Tags, tags) {
				continue
			}
			result.Templates = append(result.Templates, templateInfo{
				Name:        d.Name,
				Description: d.Description,
				Tags:        d.Tags,
				SQL:         d.SQL,
				Parameters:  nonNilParams(d.Parameters),
			})
		}

		return jsonResult(result)
	})
}

func registerProcessNamedTemplateTool(s *server.MCPServer, deps *SQLTemplateToolDeps) {
	tool := mcp.NewTool(
		"process_named_template",
		mcp.WithDescription(
			"Substitute parameter values into a named template from the library. "+
				"Use list_sql_templates first to see available templates and their parameters.",
		),
		mcp.WithString(
			"name",
			mcp.Required(),
			mcp.Description("Template name (from list_sql_templates)"),
		),
		mcp.WithObject(
			"parameters",
			mcp.Description("Parameter values keyed by name"),
		),
		mcp.WithBoolean(
			"quote_values",
			mcp.Description("Quote and escape supplied values as SQL string literals (default: false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		name = trimString(name)
		if name == "" {
			return NewErrorResult("invalid_parameters", "name cannot be empty"), nil
		}
		values, err := parameterValues(req, deps.Logger)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		quote, _ := getOptionalBool(req, "quote_values")

		result, err := deps.TemplateService.ProcessTemplate(ctx, name, &services.ProcessRequest{
			Parameters:  values,
			QuoteValues: quote,
		})
		if err != nil {
			return serviceError(deps, "process_named_template", err)
		}

		result.Parameters = nonNilParams(result.Parameters)
		return jsonResult(result)
	})
}

// serviceError returns actionable failures as error results and everything
// else as a Go error.
func serviceError(deps *SQLTemplateToolDeps, toolName string, err error) (*mcp.CallToolResult, error) {
	if errResult := NewServiceErrorResult(err); errResult != nil {
		deps.Logger.Debug("Tool returned input error",
			zap.String("tool", toolName),
			zap.Error(err))
		return errResult, nil
	}
	deps.Logger.Error("Tool failed",
		zap.String("tool", toolName),
		zap.Error(err))
	return nil, fmt.Errorf("%s failed: %w", toolName, err)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonResult, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func nonNilParams(params []models.SQLParameter) []models.SQLParameter {
	if params == nil {
		return []models.SQLParameter{}
	}
	return params
}
