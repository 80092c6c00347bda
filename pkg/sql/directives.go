package sql

import (
	"regexp"
	"strings"

	"github.com/ekaya-inc/sqlparams/pkg/models"
)

// directiveRegex matches "@set name[:type] = value" declarations.
// Group 1 is the name, group 2 the optional type expression, group 3 the raw value.
var directiveRegex = regexp.MustCompile(`@set\s+(\w+)(?::([^=]+))?\s*=\s*([^;\n]+)`)

// directiveLineRegex matches a whole directive including an optional terminating
// semicolon and a single trailing newline, for stripping before substitution.
var directiveLineRegex = regexp.MustCompile(`@set\s+\w+(?::[^=]+)?\s*=\s*[^;\n]+;?\n?`)

// directiveAtRegex is directiveLineRegex anchored to the start of its input.
var directiveAtRegex = regexp.MustCompile(`^` + directiveLineRegex.String())

// directive is the parsed form of one @set declaration.
type directive struct {
	Value          string
	Type           string
	PossibleValues []string
}

// parseDirectives collects the @set declarations in sqlQuery keyed by parameter name.
// Later declarations of the same name replace earlier ones.
func parseDirectives(sqlQuery string) map[string]directive {
	directives := make(map[string]directive)

	for _, match := range directiveRegex.FindAllStringSubmatch(sqlQuery, -1) {
		name := match[1]
		value := strings.TrimSpace(match[3])
		if name == "" || value == "" {
			continue
		}

		d := directive{Value: value}
		typeExpr := strings.TrimSpace(match[2])
		switch {
		case strings.Contains(typeExpr, "|"):
			d.Type = models.ParameterTypeEnum
			for _, choice := range strings.Split(typeExpr, "|") {
				d.PossibleValues = append(d.PossibleValues, strings.TrimSpace(choice))
			}
		case typeExpr != "":
			d.Type = typeExpr
		}

		directives[name] = d
	}

	return directives
}

// stripDirectives removes every @set declaration from sqlQuery.
func stripDirectives(sqlQuery string) string {
	return directiveLineRegex.ReplaceAllString(sqlQuery, "")
}
