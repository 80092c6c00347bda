package sql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingParameter is matched by every *MissingParameterError via errors.Is.
var ErrMissingParameter = errors.New("missing parameter value")

// MissingParameterError is returned by ProcessParameterizedSQL when a placeholder
// has neither a supplied value nor a @set default.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing value for parameter: %s", e.Name)
}

// Is makes errors.Is(err, ErrMissingParameter) hold.
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// Problem codes reported in a ValidationError.
const (
	ProblemMissing       = "missing"
	ProblemInvalidChoice = "invalid_choice"
)

// ParameterProblem is one issue found by ValidateParameterValues.
type ParameterProblem struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a set of parameter values.
type ValidationError struct {
	Problems []ParameterProblem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return "invalid parameters: " + strings.Join(msgs, "; ")
}

// Is makes a ValidationError containing a missing value match ErrMissingParameter.
func (e *ValidationError) Is(target error) bool {
	if target != ErrMissingParameter {
		return false
	}
	for _, p := range e.Problems {
		if p.Code == ProblemMissing {
			return true
		}
	}
	return false
}
