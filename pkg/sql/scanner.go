package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// Token is one :name placeholder located in a template.
// Start is the byte offset of the colon; End is exclusive.
type Token struct {
	Name  string
	Start int
	End   int
}

// TokenScanner locates placeholder tokens in template text.
// Implementations must return tokens in ascending, non-overlapping offset order.
type TokenScanner interface {
	Scan(text string) []Token
}

// StringLiteralScanner is implemented by scanners that can report whether
// placeholders inside quoted string literals are substituted. Scanners that do
// not implement it are assumed to leave literals alone.
type StringLiteralScanner interface {
	ScansStringLiterals() bool
}

// Scanner names accepted by ScannerByName.
const (
	ScannerRegex   = "regex"
	ScannerLexical = "lexical"
)

// ScannerByName returns the scanner registered under name.
func ScannerByName(name string) (TokenScanner, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScannerRegex:
		return RegexScanner{}, nil
	case ScannerLexical:
		return LexicalScanner{}, nil
	default:
		return nil, fmt.Errorf("unknown scanner %q (expected %q or %q)", name, ScannerRegex, ScannerLexical)
	}
}

// placeholderRegex matches :name placeholders anywhere in the text.
var placeholderRegex = regexp.MustCompile(`:(\w+)`)

// RegexScanner reports every ":word" substring, including those inside string
// literals, comments, casts and directive lines.
type RegexScanner struct{}

// ScansStringLiterals implements StringLiteralScanner.
func (RegexScanner) ScansStringLiterals() bool { return true }

// Scan implements TokenScanner.
func (RegexScanner) Scan(text string) []Token {
	var tokens []Token
	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(text, -1) {
		tokens = append(tokens, Token{
			Name:  text[loc[2]:loc[3]],
			Start: loc[0],
			End:   loc[1],
		})
	}
	return tokens
}

// LexicalScanner reports placeholders outside quoted text and comments.
// It skips single-quoted literals, double-quoted identifiers, dollar-quoted
// bodies, line and block comments, :: casts and @set directives.
type LexicalScanner struct{}

// ScansStringLiterals implements StringLiteralScanner.
func (LexicalScanner) ScansStringLiterals() bool { return false }

// Scan implements TokenScanner.
func (LexicalScanner) Scan(text string) []Token {
	s := &lexer{input: text}
	return s.run()
}

// lexer is the byte-level state for LexicalScanner. Placeholder names are
// ASCII word characters so byte indexing is safe for UTF-8 input.
type lexer struct {
	input  string
	pos    int
	tokens []Token
}

func (l *lexer) run() []Token {
	for l.pos < len(l.input) {
		c := l.input[l.pos]

		switch {
		case c == '@' && l.skipDirective():
		case c == '\'' || c == '"':
			l.skipQuoted(c)
		case c == '-' && l.peekAt(1) == '-':
			l.skipLineComment()
		case c == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		case c == '$':
			l.skipDollarQuoted()
		case c == ':' && l.peekAt(1) == ':':
			// Cast; step over the type name as well.
			l.pos += 2
			l.skipWord()
		case c == ':':
			l.scanPlaceholder()
		default:
			l.pos++
		}
	}
	return l.tokens
}

func (l *lexer) peekAt(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

// skipDirective consumes a @set directive exactly as stripDirectives would
// remove it, so text after its terminating ';' is still scanned.
func (l *lexer) skipDirective() bool {
	if !strings.HasPrefix(l.input[l.pos:], "@set") {
		return false
	}
	loc := directiveAtRegex.FindStringIndex(l.input[l.pos:])
	if loc == nil {
		return false
	}
	l.pos += loc[1]
	return true
}

// skipQuoted consumes a literal opened by quote. A doubled quote is an escape.
// An unterminated literal runs to the end of input.
func (l *lexer) skipQuoted(quote byte) {
	l.pos++
	for l.pos < len(l.input) {
		if l.input[l.pos] == quote {
			if l.peekAt(1) == quote {
				l.pos += 2
				continue
			}
			l.pos++
			return
		}
		l.pos++
	}
}

// quotedBody consumes a single-quoted literal and returns its raw text
// between the quotes. closed is false for an unterminated literal.
func (l *lexer) quotedBody() (body string, closed bool) {
	start := l.pos + 1
	l.pos++
	for l.pos < len(l.input) {
		if l.input[l.pos] == '\'' {
			if l.peekAt(1) == '\'' {
				l.pos += 2
				continue
			}
			body = l.input[start:l.pos]
			l.pos++
			return body, true
		}
		l.pos++
	}
	return "", false
}

// skipLineComment leaves the terminating newline in place.
func (l *lexer) skipLineComment() {
	if nl := strings.IndexByte(l.input[l.pos:], '\n'); nl >= 0 {
		l.pos += nl
		return
	}
	l.pos = len(l.input)
}

func (l *lexer) skipBlockComment() {
	if end := strings.Index(l.input[l.pos+2:], "*/"); end >= 0 {
		l.pos += 2 + end + 2
		return
	}
	l.pos = len(l.input)
}

// skipDollarQuoted consumes a $tag$...$tag$ body. A '$' that does not open a
// dollar quote (for example a $1 positional parameter) is stepped over.
func (l *lexer) skipDollarQuoted() {
	end := l.pos + 1
	if end < len(l.input) && isDigit(l.input[end]) {
		l.pos++
		return
	}
	for end < len(l.input) && isWordByte(l.input[end]) {
		end++
	}
	if end >= len(l.input) || l.input[end] != '$' {
		l.pos++
		return
	}
	tag := l.input[l.pos : end+1]
	bodyStart := end + 1
	if closing := strings.Index(l.input[bodyStart:], tag); closing >= 0 {
		l.pos = bodyStart + closing + len(tag)
		return
	}
	l.pos = len(l.input)
}

func (l *lexer) skipWord() {
	for l.pos < len(l.input) && isWordByte(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) scanPlaceholder() {
	start := l.pos
	l.pos++
	nameStart := l.pos
	l.skipWord()
	if l.pos == nameStart {
		return
	}
	l.tokens = append(l.tokens, Token{
		Name:  l.input[nameStart:l.pos],
		Start: start,
		End:   l.pos,
	})
}

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
