package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/sqlparams/pkg/config"
	"github.com/ekaya-inc/sqlparams/pkg/models"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file|-]",
		Short: "List the parameters a template uses",
		Long: `Print the :name placeholders of a template as JSON in first-occurrence order,
with the default, type, allowed values and occurrence count of each.

Reads the template from stdin when no file or "-" is given.`,
		Example: `  # Extract from a file
  sqlparams extract report.sql

  # Extract from stdin with the lexical scanner
  echo "SELECT * FROM t WHERE id = :id" | sqlparams extract --scanner lexical`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readTemplate(cmd, args)
			if err != nil {
				return err
			}

			svc, _, err := opts.newService(config.InjectionModeOff)
			if err != nil {
				return err
			}

			params, err := svc.Extract(cmd.Context(), template)
			if err != nil {
				return err
			}
			if params == nil {
				params = []models.SQLParameter{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Parameters []models.SQLParameter `json:"parameters"`
			}{Parameters: params})
		},
	}
}
