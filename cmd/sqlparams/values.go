package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/sqlparams/pkg/jsonutil"
)

// valueOptions are the flags that supply parameter values.
type valueOptions struct {
	sets       []string
	valuesFile string
}

func (v *valueOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&v.sets, "set", nil, "parameter value as name=value (repeatable)")
	cmd.Flags().StringVarP(&v.valuesFile, "values", "f", "", "YAML file of parameter values")
}

// load merges the values file with --set flags. --set wins.
func (v *valueOptions) load() (map[string]string, error) {
	values := make(map[string]string)

	if v.valuesFile != "" {
		data, err := os.ReadFile(v.valuesFile)
		if err != nil {
			return nil, fmt.Errorf("read values file: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse values file %s: %w", v.valuesFile, err)
		}
		fromFile, err := jsonutil.StringValues(raw)
		if err != nil {
			return nil, fmt.Errorf("values file %s: %w", v.valuesFile, err)
		}
		for k, val := range fromFile {
			values[k] = val
		}
	}

	for _, set := range v.sets {
		name, val, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q must be name=value", set)
		}
		values[name] = val
	}

	return values, nil
}
