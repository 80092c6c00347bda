package sql

import (
	"errors"
	"strings"
)

// ErrMultipleStatements is returned by CheckSingleStatement.
var ErrMultipleStatements = errors.New("SQL contains more than one statement")

// CheckSingleStatement returns ErrMultipleStatements when text has a
// semicolon outside quoted text and comments. One trailing terminator is
// allowed.
func CheckSingleStatement(text string) error {
	l := &lexer{input: stripTrailingSemicolon(text)}
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ';':
			return ErrMultipleStatements
		case c == '\'' || c == '"':
			l.skipQuoted(c)
		case c == '-' && l.peekAt(1) == '-':
			l.skipLineComment()
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		case c == '$':
			l.skipDollarQuoted()
		default:
			l.pos++
		}
	}
	return nil
}

func stripTrailingSemicolon(text string) string {
	text = strings.TrimRight(text, " \t\r\n")
	if trimmed, ok := strings.CutSuffix(text, ";"); ok {
		return strings.TrimRight(trimmed, " \t\r\n")
	}
	return text
}
