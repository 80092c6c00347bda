package models

// SQLParameter describes one distinct :name reference found in a SQL template.
type SQLParameter struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`                    // Directive default, or "" when none
	DefaultValue   *string  `json:"defaultValue,omitempty"`   // nil if no @set directive
	Type           string   `json:"type,omitempty"`           // "" if undeclared, "enum" for unions
	PossibleValues []string `json:"possibleValues,omitempty"` // only set when Type == "enum"
	Occurrences    int      `json:"occurrences"`
}

// ParameterTypeEnum is the type assigned to parameters declared with a union of literals.
const ParameterTypeEnum = "enum"

// HasDefault reports whether a @set directive supplied a default value.
func (p *SQLParameter) HasDefault() bool {
	return p.DefaultValue != nil
}

// IsEnum reports whether the parameter was declared as a union of literal values.
func (p *SQLParameter) IsEnum() bool {
	return p.Type == ParameterTypeEnum
}

// AllowsValue reports whether value is acceptable for the parameter.
// Non-enum parameters accept anything.
func (p *SQLParameter) AllowsValue(value string) bool {
	if !p.IsEnum() {
		return true
	}
	for _, v := range p.PossibleValues {
		if v == value {
			return true
		}
	}
	return false
}

// SQLTemplate is a named, reusable SQL template from the template library.
type SQLTemplate struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	SQL         string   `yaml:"sql" json:"sql"`
	Tags        []string `yaml:"tags" json:"tags,omitempty"`
}
