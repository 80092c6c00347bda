package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/sqlparams/pkg/models"
)

// runCLI executes the root command with stdin and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtract_FromStdin(t *testing.T) {
	out, _, err := runCLI(t, "@set limit = 10\nSELECT * FROM events WHERE actor = :actor LIMIT :limit", "extract")
	require.NoError(t, err)

	var got struct {
		Parameters []models.SQLParameter `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Parameters, 2)
	assert.Equal(t, "actor", got.Parameters[0].Name)
	assert.False(t, got.Parameters[0].HasDefault())
	assert.Equal(t, "limit", got.Parameters[1].Name)
	require.True(t, got.Parameters[1].HasDefault())
	assert.Equal(t, "10", *got.Parameters[1].DefaultValue)
}

func TestExtract_NoParametersPrintsEmptyList(t *testing.T) {
	out, _, err := runCLI(t, "SELECT 1", "extract", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `{"parameters": []}`, out)
}

func TestExtract_UnknownScanner(t *testing.T) {
	_, _, err := runCLI(t, "SELECT :a", "extract", "--scanner", "magic")
	require.Error(t, err)
}

func TestExtract_FileNotFound(t *testing.T) {
	_, _, err := runCLI(t, "", "extract", filepath.Join(t.TempDir(), "missing.sql"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read template")
}

func TestProcess_DefaultsAndOverrides(t *testing.T) {
	path := writeFile(t, "report.sql",
		"@set status:open|closed = open\n@set limit = 100\nSELECT * FROM tickets WHERE status = ':status' LIMIT :limit\n")

	out, _, err := runCLI(t, "", "process", path, "--set", "limit=5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM tickets WHERE status = 'open' LIMIT 5\n", out)
}

func TestProcess_ValuesFile(t *testing.T) {
	values := writeFile(t, "values.yaml", "id: 42\nactive: true\nname: bob\n")

	out, _, err := runCLI(t, "SELECT :id, :active, ':name'", "process", "--values", values)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 42, true, 'bob'\n", out)
}

func TestProcess_SetWinsOverValuesFile(t *testing.T) {
	values := writeFile(t, "values.yaml", "id: 42\n")

	out, _, err := runCLI(t, "SELECT :id", "process", "-f", values, "--set", "id=7")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 7\n", out)
}

func TestProcess_Quote(t *testing.T) {
	out, _, err := runCLI(t, "@set id:int = 1\nSELECT * FROM users WHERE id = :id AND name = :name",
		"process", "--quote", "--set", "id=5", "--set", "name=O'Brien")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id = 5 AND name = 'O''Brien'\n", out)
}

func TestProcess_MissingParameter(t *testing.T) {
	_, _, err := runCLI(t, "SELECT * FROM users WHERE id = :id", "process")
	require.Error(t, err)
	assert.Equal(t, "missing value for parameter: id", err.Error())
}

func TestProcess_InjectionReject(t *testing.T) {
	_, _, err := runCLI(t, "SELECT * FROM users WHERE name = ':name'",
		"process", "--injection-mode", "reject", "--set", "name=' OR '1'='1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "possible SQL injection")
}

func TestProcess_InvalidInjectionMode(t *testing.T) {
	_, _, err := runCLI(t, "SELECT 1", "process", "--injection-mode", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--injection-mode")
}

func TestProcess_MalformedSet(t *testing.T) {
	_, _, err := runCLI(t, "SELECT :a", "process", "--set", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name=value")
}

func TestProcess_TooLarge(t *testing.T) {
	_, _, err := runCLI(t, "SELECT :a -- padding", "process", "--max-bytes", "8", "--set", "a=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate_OK(t *testing.T) {
	out, _, err := runCLI(t, "@set status:open|closed = open\nSELECT ':status', :id", "validate", "--set", "id=1")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestValidate_ReportsProblems(t *testing.T) {
	out, _, err := runCLI(t, "@set status:open|closed = open\nSELECT ':status', :id",
		"validate", "--set", "status=archived")
	require.Error(t, err)
	assert.Equal(t, "2 parameter problem(s)", err.Error())
	assert.Contains(t, out, "status\tinvalid_choice\t")
	assert.Contains(t, out, "id\tmissing\tmissing value for parameter: id")
}
