// Package sql provides SQL parameter templating utilities.
package sql

/*
Parameter Template Syntax Documentation

# Overview

SQL templates handled by sqlparams use two constructs: :name placeholders that are replaced
with literal values, and @set directive lines that declare a default value, a type tag, or a
set of allowed values for a placeholder. Processing a template removes every directive line and
replaces every placeholder, producing SQL that can be sent to a database as-is.

# Placeholders

A placeholder is a colon immediately followed by one or more word characters:

	:name

Word characters are letters, digits and underscore. Names are case-sensitive, so :userId and
:userid are different parameters. The placeholder ends at the first non-word character.

# Directives

A directive declares metadata for a placeholder:

	@set <name>[:<type>] = <value>

The value runs until the end of the line or the first semicolon and is trimmed. Directives that
trim to an empty value are ignored. When a name is declared more than once the last directive
wins.

## Default value only

	@set limit = 100
	SELECT * FROM events LIMIT :limit

## Typed default

	@set userId:int = 123
	SELECT * FROM users WHERE id = :userId

The type tag is informational. It is reported to callers (for example to render an input
control or to decide whether a value needs quoting) but values are never coerced.

## Enumerated values

	@set status:open|closed|pending = open
	SELECT * FROM tickets WHERE status = ':status'

A type expression containing a pipe declares an enum. The parameter is reported with type
"enum" and the trimmed alternatives in declaration order.

# Extraction

ExtractParameters reports one SQLParameter per distinct placeholder name, in order of first
appearance, with the number of occurrences and any directive metadata. Directives for names
that are never referenced are not reported.

# Substitution

ProcessParameterizedSQL strips directive lines and replaces each placeholder with, in order of
precedence:

 1. the caller-supplied value for that name
 2. the directive default

If neither exists the call fails with a *MissingParameterError and no SQL is returned.

# Values are inserted verbatim

The engine performs no quoting or escaping. A value of

	'; DROP TABLE users; --

is inserted exactly as given. Callers that accept values from users must quote them first, for
example with QuoteLiteral, and can screen them with CheckParameterForInjection.

# Known sharp edges

The default scanner is a regular expression over raw text. It does not understand string
literals, comments or casts, so all of the following are reported as placeholders:

	SELECT '10:30'          -- "30"
	SELECT id::text         -- "text"
	@set id:int = 1         -- "int", from the directive line itself

LexicalScanner skips quoted text, comments, casts and directive lines. Select it with
NewEngine(WithScanner(LexicalScanner{})) where those cases matter.
*/
