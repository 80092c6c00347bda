package sql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/sqlparams/pkg/models"
)

// ValidateParameterValues checks params against sqlQuery using the default engine.
func ValidateParameterValues(sqlQuery string, params map[string]string) error {
	return defaultEngine.ValidateParameterValues(sqlQuery, params)
}

// ValidateParameterValues reports every placeholder that ProcessParameterizedSQL
// would fail on, plus enum parameters given a value outside their declared
// choices, in first-appearance order. Returns nil or a *ValidationError.
//
// Unlike ProcessParameterizedSQL this does not stop at the first problem, so a
// caller can prompt for all missing values at once.
func (e *Engine) ValidateParameterValues(sqlQuery string, params map[string]string) error {
	var problems []ParameterProblem
	directives := parseDirectives(sqlQuery)
	seen := make(map[string]bool)

	for _, tok := range e.scanner.Scan(stripDirectives(sqlQuery)) {
		if seen[tok.Name] {
			continue
		}
		seen[tok.Name] = true

		supplied, hasValue := params[tok.Name]
		d, hasDirective := directives[tok.Name]

		if !hasValue && !hasDirective {
			problems = append(problems, ParameterProblem{
				Name:    tok.Name,
				Code:    ProblemMissing,
				Message: (&MissingParameterError{Name: tok.Name}).Error(),
			})
			continue
		}

		declared := models.SQLParameter{Type: d.Type, PossibleValues: d.PossibleValues}
		if hasValue && hasDirective && !declared.AllowsValue(supplied) {
			problems = append(problems, ParameterProblem{
				Name: tok.Name,
				Code: ProblemInvalidChoice,
				Message: fmt.Sprintf("parameter %s must be one of [%s], got %q",
					tok.Name, strings.Join(d.PossibleValues, ", "), supplied),
			})
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// FindParametersInStringLiterals returns placeholder names that appear inside
// single-quoted string literals. The default scanner substitutes these like any
// other placeholder, which is usually intended for enum values ('...:status...')
// but surprising for literals such as '10:30'.
//
// Example:
//
//	sql := "SELECT * FROM events WHERE at > '2024-01-01 10:30' AND kind = :kind"
//	problems := FindParametersInStringLiterals(sql)
//	// problems == []string{"30"}
func FindParametersInStringLiterals(sqlQuery string) []string {
	var problems []string
	seen := make(map[string]bool)

	l := &lexer{input: sqlQuery}
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\'':
			body, closed := l.quotedBody()
			if !closed {
				return problems
			}
			for _, tok := range (RegexScanner{}).Scan(body) {
				if !seen[tok.Name] {
					seen[tok.Name] = true
					problems = append(problems, tok.Name)
				}
			}
		case c == '"':
			l.skipQuoted(c)
		case c == '-' && l.peekAt(1) == '-':
			l.skipLineComment()
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		default:
			l.pos++
		}
	}

	return problems
}
