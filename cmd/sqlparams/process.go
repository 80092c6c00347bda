package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/sqlparams/pkg/config"
	"github.com/ekaya-inc/sqlparams/pkg/services"
)

func newProcessCmd(opts *rootOptions) *cobra.Command {
	values := &valueOptions{}
	var quote bool
	var injectionMode string

	cmd := &cobra.Command{
		Use:   "process [file|-]",
		Short: "Substitute parameter values into a template",
		Long: `Replace every :name placeholder with its value and print the resulting SQL.

Values come from --values (a YAML map) and --set flags; --set wins. Placeholders
without a supplied value fall back to their @set default. Directive lines are
removed from the output. Exits non-zero when a placeholder has no value.

Values are inserted verbatim unless --quote is given, which quotes them as SQL
string literals except for int, number and bool parameters.`,
		Example: `  # Use @set defaults, override one value
  sqlparams process report.sql --set status=closed

  # Read values from YAML and quote them
  sqlparams process report.sql --values values.yaml --quote

  # Refuse values that look like SQL injection
  sqlparams process report.sql --set name="O'Brien" --injection-mode reject`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readTemplate(cmd, args)
			if err != nil {
				return err
			}
			params, err := values.load()
			if err != nil {
				return err
			}

			svc, logger, err := opts.newService(injectionMode)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			result, err := svc.Process(cmd.Context(), &services.ProcessRequest{
				SQL:         template,
				Parameters:  params,
				QuoteValues: quote,
			})
			if err != nil {
				return err
			}

			for _, w := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			fmt.Fprintln(cmd.OutOrStdout(), trimTrailingNewline(result.SQL))
			return nil
		},
	}

	values.register(cmd)
	cmd.Flags().BoolVar(&quote, "quote", false, "quote values as SQL string literals")
	cmd.Flags().StringVar(&injectionMode, "injection-mode", config.InjectionModeWarn, "screen values for SQL injection: off, warn or reject")

	return cmd
}
