// Package jsonutil decodes loosely typed parameter values from JSON clients.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// FlexibleStringValue converts a scalar JSON value to the text substituted into
// SQL. Numbers keep their literal spelling. present is false for null or empty
// input; objects and arrays are an error.
func FlexibleStringValue(raw json.RawMessage) (value string, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		return "", false, fmt.Errorf("expected string, number or boolean, got %s", kindOf(raw[0]))
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false, err
		}
		return n.String(), true, nil
	}
}

func kindOf(c byte) string {
	if c == '{' {
		return "object"
	}
	return "array"
}

// ParameterValues is a name to value map that accepts JSON numbers and
// booleans as values. Null entries are dropped so defaults apply.
type ParameterValues map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (p *ParameterValues) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*p = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(ParameterValues, len(raw))
	for _, name := range sortedKeys(raw) {
		value, present, err := FlexibleStringValue(raw[name])
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		if present {
			out[name] = value
		}
	}
	*p = out
	return nil
}

// StringValues converts decoded JSON or YAML values (as produced by
// encoding/json into any, or by MCP argument maps) to parameter text.
// Nil values are dropped.
func StringValues(values map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, name := range sortedKeys(values) {
		switch v := values[name].(type) {
		case nil:
		case string:
			out[name] = v
		case bool:
			out[name] = strconv.FormatBool(v)
		case int:
			out[name] = strconv.Itoa(v)
		case int64:
			out[name] = strconv.FormatInt(v, 10)
		case uint64:
			out[name] = strconv.FormatUint(v, 10)
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			out[name] = v.String()
		default:
			return nil, fmt.Errorf("parameter %q: expected string, number or boolean, got %T", name, v)
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
