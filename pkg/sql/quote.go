package sql

import "strings"

// QuoteLiteral renders s as a PostgreSQL string literal. Single quotes are
// doubled; input containing backslashes uses the E'' form with backslashes
// doubled so the result is safe regardless of standard_conforming_strings.
//
// The template engine never calls this. It is for callers that place
// user-supplied values into the parameters map.
func QuoteLiteral(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	if strings.Contains(s, `\`) {
		return `E'` + strings.ReplaceAll(escaped, `\`, `\\`) + `'`
	}
	return "'" + escaped + "'"
}

var numericTypes = map[string]bool{
	"int": true, "int2": true, "int4": true, "int8": true,
	"integer": true, "smallint": true, "bigint": true,
	"numeric": true, "decimal": true, "number": true,
	"real": true, "float": true, "float4": true, "float8": true,
	"double": true, "double precision": true,
}

// IsNumericType reports whether a @set type tag names a numeric type.
func IsNumericType(t string) bool {
	return numericTypes[strings.ToLower(strings.TrimSpace(t))]
}

// IsBooleanType reports whether a @set type tag names a boolean type.
func IsBooleanType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "bool", "boolean":
		return true
	}
	return false
}
