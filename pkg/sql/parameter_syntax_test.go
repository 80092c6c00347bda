package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
)

// TestParameterSyntaxDocumentation checks the examples from the package documentation.

func TestDocumentedDirectiveForms(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		param        string
		expectedType string
		expectedVals []string
		expectedOut  string
	}{
		{
			name:        "default value only",
			sql:         "@set limit = 100\nSELECT * FROM events LIMIT :limit",
			param:       "limit",
			expectedOut: "SELECT * FROM events LIMIT 100",
		},
		{
			name:         "typed default",
			sql:          "@set userId:int = 123\nSELECT * FROM users WHERE id = :userId",
			param:        "userId",
			expectedType: "int",
			expectedOut:  "SELECT * FROM users WHERE id = 123",
		},
		{
			name:         "enumerated values",
			sql:          "@set status:open|closed|pending = open\nSELECT * FROM tickets WHERE status = ':status'",
			param:        "status",
			expectedType: "enum",
			expectedVals: []string{"open", "closed", "pending"},
			expectedOut:  "SELECT * FROM tickets WHERE status = 'open'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var found bool
			for _, p := range sqlparams.ExtractParameters(tt.sql) {
				if p.Name != tt.param {
					continue
				}
				found = true
				assert.Equal(t, tt.expectedType, p.Type)
				assert.Equal(t, tt.expectedVals, p.PossibleValues)
			}
			require.True(t, found, "parameter %s not extracted", tt.param)

			out, err := sqlparams.ProcessParameterizedSQL(tt.sql, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedOut, out)
		})
	}
}

func TestDocumentedSharpEdges(t *testing.T) {
	names := func(sql string) []string {
		var out []string
		for _, p := range sqlparams.ExtractParameters(sql) {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"30"}, names("SELECT '10:30'"))
	assert.Equal(t, []string{"text"}, names("SELECT id::text"))
	assert.Equal(t, []string{"int"}, names("@set id:int = 1"))

	lexical := sqlparams.NewEngine(sqlparams.WithScanner(sqlparams.LexicalScanner{}))
	assert.Empty(t, lexical.ExtractParameters("SELECT '10:30', id::text\n@set id:int = 1"))
}
