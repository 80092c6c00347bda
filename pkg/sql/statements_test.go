package sql

import (
	"errors"
	"testing"
)

func TestCheckSingleStatement(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		multi bool
	}{
		{name: "empty", sql: ""},
		{name: "no terminator", sql: "SELECT 1"},
		{name: "trailing terminator", sql: "SELECT 1;"},
		{name: "trailing terminator and whitespace", sql: "SELECT 1 ;\n\t"},
		{name: "semicolon in literal", sql: "SELECT * FROM t WHERE note = 'a;b'"},
		{name: "escaped quote keeps literal open", sql: "SELECT 'it''s; fine'"},
		{name: "semicolon in identifier", sql: `SELECT "a;b" FROM t`},
		{name: "semicolon in line comment", sql: "SELECT 1 -- one; two\nFROM t"},
		{name: "semicolon in block comment", sql: "SELECT /* ; */ 1"},
		{name: "semicolon in dollar quote", sql: "SELECT $$a;b$$"},
		{name: "two statements", sql: "SELECT 1; SELECT 2", multi: true},
		{name: "injected statement", sql: "SELECT * FROM users WHERE id = 1; DROP TABLE users", multi: true},
		{name: "two terminated statements", sql: "SELECT 1; SELECT 2;", multi: true},
		{name: "positional parameter", sql: "SELECT $1; SELECT $2", multi: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSingleStatement(tt.sql)
			if tt.multi {
				if !errors.Is(err, ErrMultipleStatements) {
					t.Errorf("CheckSingleStatement(%q) = %v, want ErrMultipleStatements", tt.sql, err)
				}
				return
			}
			if err != nil {
				t.Errorf("CheckSingleStatement(%q) = %v, want nil", tt.sql, err)
			}
		})
	}
}
