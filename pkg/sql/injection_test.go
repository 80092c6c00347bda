package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckParameterForInjection(t *testing.T) {
	tests := []struct {
		name            string
		paramName       string
		value           string
		expectInjection bool
	}{
		// Clean values
		{name: "numeric id", paramName: "userId", value: "12345"},
		{name: "email address", paramName: "email", value: "user@example.com"},
		{name: "date", paramName: "start_date", value: "2024-01-15"},
		{name: "uuid", paramName: "id", value: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "search term", paramName: "search", value: "laptop computers"},
		{name: "empty string", paramName: "filter", value: ""},
		{name: "apostrophe in name", paramName: "name", value: "O'Brien"},
		{name: "double dash in text", paramName: "note", value: "This is a note -- with dashes"},

		// Injection patterns
		{name: "classic quote injection", paramName: "username", value: "' OR '1'='1", expectInjection: true},
		{name: "drop table", paramName: "search", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "union select", paramName: "id", value: "1 UNION SELECT * FROM passwords", expectInjection: true},
		{name: "comment injection", paramName: "filter", value: "admin'--", expectInjection: true},
		{name: "or tautology", paramName: "password", value: "' OR 1=1--", expectInjection: true},
		{name: "time-based blind", paramName: "id", value: "1' AND SLEEP(5)--", expectInjection: true},
		{name: "stacked queries", paramName: "name", value: "admin'; DELETE FROM logs; --", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckParameterForInjection(tt.paramName, tt.value)
			if !tt.expectInjection {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.True(t, result.IsSQLi)
			assert.NotEmpty(t, result.Fingerprint)
			assert.Equal(t, tt.paramName, result.ParamName)
			assert.Equal(t, tt.value, result.ParamValue)
		})
	}
}

func TestCheckAllParameters(t *testing.T) {
	t.Run("all clean", func(t *testing.T) {
		results := CheckAllParameters(map[string]string{
			"userId": "42",
			"status": "open",
		})
		assert.Empty(t, results)
	})

	t.Run("failures ordered by name", func(t *testing.T) {
		results := CheckAllParameters(map[string]string{
			"zeta":   "' OR 1=1--",
			"alpha":  "'; DROP TABLE users--",
			"userId": "42",
		})
		require.Len(t, results, 2)
		assert.Equal(t, "alpha", results[0].ParamName)
		assert.Equal(t, "zeta", results[1].ParamName)
	})

	t.Run("nil map", func(t *testing.T) {
		assert.Nil(t, CheckAllParameters(nil))
	})
}
