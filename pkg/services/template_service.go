package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/apperrors"
	"github.com/ekaya-inc/sqlparams/pkg/audit"
	"github.com/ekaya-inc/sqlparams/pkg/config"
	"github.com/ekaya-inc/sqlparams/pkg/logging"
	"github.com/ekaya-inc/sqlparams/pkg/models"
	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
	"github.com/ekaya-inc/sqlparams/pkg/templates"
)

// ErrTemplateTooLarge is returned when a template exceeds MaxTemplateBytes.
var ErrTemplateTooLarge = fmt.Errorf("template %w", apperrors.ErrTooLarge)

// InjectionError is returned by Process in reject mode when supplied values
// look like SQL injection.
type InjectionError struct {
	Results []*sqlparams.InjectionCheckResult
}

func (e *InjectionError) Error() string {
	names := make([]string, 0, len(e.Results))
	for _, r := range e.Results {
		names = append(names, r.ParamName)
	}
	return "possible SQL injection in parameter(s): " + strings.Join(names, ", ")
}

// Params returns the flagged parameter names.
func (e *InjectionError) Params() []string {
	names := make([]string, 0, len(e.Results))
	for _, r := range e.Results {
		names = append(names, r.ParamName)
	}
	return names
}

// TemplateService extracts, validates and processes parameterized SQL.
type TemplateService interface {
	Extract(ctx context.Context, sql string) ([]models.SQLParameter, error)
	Process(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	Validate(ctx context.Context, sql string, params map[string]string) error

	// Template library
	ListTemplates(ctx context.Context) ([]*TemplateDetail, error)
	GetTemplate(ctx context.Context, name string) (*TemplateDetail, error)
	ProcessTemplate(ctx context.Context, name string, req *ProcessRequest) (*ProcessResult, error)
}

// ProcessRequest is a template plus the values to substitute.
type ProcessRequest struct {
	SQL         string            `json:"sql"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	// QuoteValues wraps each supplied value with sqlparams.QuoteLiteral unless
	// its declared type is numeric or boolean. @set defaults are template text
	// and are always inserted as written, so a template that relies on a text
	// default must quote it in the directive (@set label = 'x') or around the
	// placeholder.
	QuoteValues bool              `json:"quote_values,omitempty"`
	ClientIP    string            `json:"-"`
}

// ProcessResult is the substituted SQL with the template's parameter descriptors.
type ProcessResult struct {
	SQL        string                `json:"sql"`
	Parameters []models.SQLParameter `json:"parameters"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// TemplateDetail is a library template with its extracted parameters.
type TemplateDetail struct {
	*models.SQLTemplate
	Parameters []models.SQLParameter `json:"parameters"`
}

// TemplateServiceConfig holds processing limits.
type TemplateServiceConfig struct {
	MaxTemplateBytes int
	InjectionMode    string
}

type templateService struct {
	engine  *sqlparams.Engine
	library *templates.Library
	auditor audit.Auditor
	cfg     TemplateServiceConfig
	logger  *zap.Logger
}

// NewTemplateService creates a template service. A nil library behaves as empty.
func NewTemplateService(
	engine *sqlparams.Engine,
	library *templates.Library,
	auditor audit.Auditor,
	cfg TemplateServiceConfig,
	logger *zap.Logger,
) TemplateService {
	if library == nil {
		library, _ = templates.Parse(nil)
	}
	if cfg.InjectionMode == "" {
		cfg.InjectionMode = config.InjectionModeWarn
	}
	return &templateService{
		engine:  engine,
		library: library,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger.Named("templates"),
	}
}

func (s *templateService) checkSize(sql string) error {
	if s.cfg.MaxTemplateBytes > 0 && len(sql) > s.cfg.MaxTemplateBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTemplateTooLarge, len(sql), s.cfg.MaxTemplateBytes)
	}
	return nil
}

// Extract returns the parameter descriptors of sql.
func (s *templateService) Extract(ctx context.Context, sql string) ([]models.SQLParameter, error) {
	if err := s.checkSize(sql); err != nil {
		return nil, err
	}
	return s.engine.ExtractParameters(sql), nil
}

// Validate reports missing values and enum violations without substituting.
func (s *templateService) Validate(ctx context.Context, sql string, params map[string]string) error {
	if err := s.checkSize(sql); err != nil {
		return err
	}
	return s.engine.ValidateParameterValues(sql, params)
}

// Process substitutes values into an ad-hoc template.
func (s *templateService) Process(ctx context.Context, req *ProcessRequest) (*ProcessResult, error) {
	return s.process(ctx, "", req)
}

func (s *templateService) process(ctx context.Context, templateName string, req *ProcessRequest) (*ProcessResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", apperrors.ErrInvalidInput)
	}
	if err := s.checkSize(req.SQL); err != nil {
		return nil, err
	}

	if err := s.screenValues(ctx, templateName, req); err != nil {
		return nil, err
	}

	descriptors := s.engine.ExtractParameters(req.SQL)
	values := req.Parameters
	if req.QuoteValues {
		values = quoteValues(req.Parameters, descriptors)
	}

	out, err := s.engine.ProcessParameterizedSQL(req.SQL, values)
	if err != nil {
		var missing *sqlparams.MissingParameterError
		if errors.As(err, &missing) {
			s.auditor.LogParameterValidation(ctx, templateName, err.Error(), req.ClientIP)
			return nil, err
		}
		return nil, fmt.Errorf("failed to process template: %w", err)
	}

	result := &ProcessResult{
		SQL:        out,
		Parameters: descriptors,
		Warnings:   s.literalWarnings(req.SQL),
	}
	if sqlparams.CheckSingleStatement(out) != nil {
		result.Warnings = append(result.Warnings, "processed SQL contains more than one statement")
	}

	s.auditor.LogTemplateProcessed(ctx, templateName, len(descriptors), req.ClientIP)
	s.logger.Debug("Processed template",
		zap.String("template", templateName),
		zap.String("sql", logging.SanitizeQuery(out)),
		zap.Int("param_count", len(descriptors)),
	)

	return result, nil
}

// screenValues runs libinjection over supplied values according to the
// configured injection mode.
func (s *templateService) screenValues(ctx context.Context, templateName string, req *ProcessRequest) error {
	if s.cfg.InjectionMode == config.InjectionModeOff || len(req.Parameters) == 0 {
		return nil
	}

	results := sqlparams.CheckAllParameters(req.Parameters)
	if len(results) == 0 {
		return nil
	}

	reject := s.cfg.InjectionMode == config.InjectionModeReject
	for _, r := range results {
		s.auditor.LogInjectionAttempt(ctx, templateName, audit.SQLInjectionDetails{
			ParamName:   r.ParamName,
			ParamValue:  r.ParamValue,
			Fingerprint: r.Fingerprint,
			Rejected:    reject,
		}, req.ClientIP)
	}

	if reject {
		return &InjectionError{Results: results}
	}
	return nil
}

// literalWarnings flags placeholders inside string literals when the engine's
// scanner substitutes there.
func (s *templateService) literalWarnings(sql string) []string {
	ls, ok := s.engine.Scanner().(sqlparams.StringLiteralScanner)
	if !ok || !ls.ScansStringLiterals() {
		return nil
	}

	names := sqlparams.FindParametersInStringLiterals(sql)
	if len(names) == 0 {
		return nil
	}

	warnings := make([]string, 0, len(names))
	for _, name := range names {
		warnings = append(warnings, fmt.Sprintf("parameter :%s appears inside a string literal; its value is inserted as-is", name))
	}
	return warnings
}

// quoteValues wraps supplied values as SQL string literals, leaving values of
// parameters declared numeric or boolean untouched. Defaults are not in params
// and stay raw.
func quoteValues(params map[string]string, descriptors []models.SQLParameter) map[string]string {
	types := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		types[d.Name] = d.Type
	}

	quoted := make(map[string]string, len(params))
	for name, value := range params {
		t := types[name]
		if sqlparams.IsNumericType(t) || sqlparams.IsBooleanType(t) {
			quoted[name] = value
			continue
		}
		quoted[name] = sqlparams.QuoteLiteral(value)
	}
	return quoted
}

// ListTemplates returns every library template sorted by name.
func (s *templateService) ListTemplates(ctx context.Context) ([]*TemplateDetail, error) {
	list := s.library.List()
	details := make([]*TemplateDetail, 0, len(list))
	for _, t := range list {
		details = append(details, &TemplateDetail{
			SQLTemplate: t,
			Parameters:  s.engine.ExtractParameters(t.SQL),
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Name < details[j].Name })
	return details, nil
}

// GetTemplate returns one library template with its parameters.
func (s *templateService) GetTemplate(ctx context.Context, name string) (*TemplateDetail, error) {
	t, err := s.library.Get(name)
	if err != nil {
		return nil, err
	}
	return &TemplateDetail{
		SQLTemplate: t,
		Parameters:  s.engine.ExtractParameters(t.SQL),
	}, nil
}

// ProcessTemplate processes a library template; req.SQL is ignored.
func (s *templateService) ProcessTemplate(ctx context.Context, name string, req *ProcessRequest) (*ProcessResult, error) {
	t, err := s.library.Get(name)
	if err != nil {
		return nil, err
	}

	named := ProcessRequest{SQL: t.SQL}
	if req != nil {
		named.Parameters = req.Parameters
		named.QuoteValues = req.QuoteValues
		named.ClientIP = req.ClientIP
	}
	return s.process(ctx, name, &named)
}

var _ TemplateService = (*templateService)(nil)
