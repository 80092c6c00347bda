package sql

import (
	"strings"

	"github.com/ekaya-inc/sqlparams/pkg/models"
)

// Engine extracts and substitutes :name placeholders. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	scanner TokenScanner
}

// Option configures an Engine.
type Option func(*Engine)

// WithScanner replaces the default RegexScanner.
func WithScanner(scanner TokenScanner) Option {
	return func(e *Engine) {
		if scanner != nil {
			e.scanner = scanner
		}
	}
}

// NewEngine returns an Engine using RegexScanner unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{scanner: RegexScanner{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scanner returns the scanner the engine was built with.
func (e *Engine) Scanner() TokenScanner {
	return e.scanner
}

var defaultEngine = NewEngine()

// ExtractParameters lists the distinct placeholders in sqlQuery using the default engine.
//
// Example:
//
//	sql := "@set limit = 10\nSELECT * FROM events WHERE actor = :actor OR target = :actor LIMIT :limit"
//	params := ExtractParameters(sql)
//	// params[0]: Name "actor", Occurrences 2, no default
//	// params[1]: Name "limit", Value "10", *DefaultValue "10", Occurrences 1
func ExtractParameters(sqlQuery string) []models.SQLParameter {
	return defaultEngine.ExtractParameters(sqlQuery)
}

// ProcessParameterizedSQL strips directives and substitutes every placeholder
// using the default engine.
//
// Example:
//
//	sql := "@set userId:int = 123\nSELECT * FROM users WHERE id = :userId"
//	out, err := ProcessParameterizedSQL(sql, map[string]string{})
//	// out == "SELECT * FROM users WHERE id = 123"
//
//	out, err = ProcessParameterizedSQL("SELECT :missing", nil)
//	// err is *MissingParameterError{Name: "missing"}, out == ""
func ProcessParameterizedSQL(sqlQuery string, params map[string]string) (string, error) {
	return defaultEngine.ProcessParameterizedSQL(sqlQuery, params)
}

// ExtractParameters returns one descriptor per distinct placeholder name in order
// of first appearance. Directives enrich descriptors but never add names.
func (e *Engine) ExtractParameters(sqlQuery string) []models.SQLParameter {
	if sqlQuery == "" {
		return nil
	}

	tokens := e.scanner.Scan(sqlQuery)
	if len(tokens) == 0 {
		return nil
	}

	directives := parseDirectives(sqlQuery)
	index := make(map[string]int)
	var params []models.SQLParameter

	for _, tok := range tokens {
		if i, seen := index[tok.Name]; seen {
			params[i].Occurrences++
			continue
		}

		p := models.SQLParameter{Name: tok.Name, Occurrences: 1}
		if d, ok := directives[tok.Name]; ok {
			value := d.Value
			p.Value = value
			p.DefaultValue = &value
			p.Type = d.Type
			p.PossibleValues = d.PossibleValues
		}

		index[tok.Name] = len(params)
		params = append(params, p)
	}

	return params
}

// ProcessParameterizedSQL removes @set directives from sqlQuery and replaces each
// placeholder with the supplied value, falling back to the directive default.
// The first placeholder with neither yields a *MissingParameterError and no SQL.
// Values are inserted verbatim.
func (e *Engine) ProcessParameterizedSQL(sqlQuery string, params map[string]string) (string, error) {
	directives := parseDirectives(sqlQuery)
	stripped := stripDirectives(sqlQuery)

	var b strings.Builder
	b.Grow(len(stripped))
	last := 0

	for _, tok := range e.scanner.Scan(stripped) {
		value, ok := resolveValue(tok.Name, params, directives)
		if !ok {
			return "", &MissingParameterError{Name: tok.Name}
		}
		b.WriteString(stripped[last:tok.Start])
		b.WriteString(value)
		last = tok.End
	}
	b.WriteString(stripped[last:])

	return b.String(), nil
}

// resolveValue applies supplied-value-then-default precedence.
func resolveValue(name string, params map[string]string, directives map[string]directive) (string, bool) {
	if v, ok := params[name]; ok {
		return v, true
	}
	if d, ok := directives[name]; ok {
		return d.Value, true
	}
	return "", false
}
