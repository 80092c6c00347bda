package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/sqlparams/pkg/config"
	"github.com/ekaya-inc/sqlparams/pkg/sql"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	values := &valueOptions{}

	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check parameter values without substituting them",
		Long: `Report placeholders that have neither a supplied value nor a default, and
enum parameters given a value outside their allowed set. Exits non-zero when
any problem is found.`,
		Example: `  sqlparams validate report.sql --set status=archived`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := readTemplate(cmd, args)
			if err != nil {
				return err
			}
			params, err := values.load()
			if err != nil {
				return err
			}

			svc, _, err := opts.newService(config.InjectionModeOff)
			if err != nil {
				return err
			}

			err = svc.Validate(cmd.Context(), template, params)
			var vErr *sql.ValidationError
			switch {
			case err == nil:
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			case errors.As(err, &vErr):
				for _, p := range vErr.Problems {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Name, p.Code, p.Message)
				}
				return fmt.Errorf("%d parameter problem(s)", len(vErr.Problems))
			default:
				return err
			}
		},
	}

	values.register(cmd)
	return cmd
}
