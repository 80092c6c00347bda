package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqlparams/pkg/audit"
	"github.com/ekaya-inc/sqlparams/pkg/config"
	"github.com/ekaya-inc/sqlparams/pkg/logging"
	"github.com/ekaya-inc/sqlparams/pkg/services"
	sqlparams "github.com/ekaya-inc/sqlparams/pkg/sql"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	scanner  string
	logLevel string
	maxBytes int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlparams",
		Short: "Work with parameterized SQL templates",
		Long: `Extract, validate and substitute :name placeholders in SQL templates.

Templates may declare defaults with directive lines:

  @set limit = 100
  @set userId:int = 123
  @set status:open|closed|pending = open`,
		Version:       Version,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&opts.scanner, "scanner", sqlparams.ScannerRegex, "placeholder scanner: regex or lexical")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for audit output on stderr")
	cmd.PersistentFlags().IntVar(&opts.maxBytes, "max-bytes", 1<<20, "reject templates larger than this many bytes")

	cmd.AddCommand(
		newExtractCmd(opts),
		newProcessCmd(opts),
		newValidateCmd(opts),
	)
	return cmd
}

// newService builds the template service the subcommands share.
func (o *rootOptions) newService(injectionMode string) (services.TemplateService, *zap.Logger, error) {
	scanner, err := sqlparams.ScannerByName(o.scanner)
	if err != nil {
		return nil, nil, err
	}
	if o.maxBytes <= 0 {
		return nil, nil, fmt.Errorf("--max-bytes must be positive (got %d)", o.maxBytes)
	}
	switch injectionMode {
	case config.InjectionModeOff, config.InjectionModeWarn, config.InjectionModeReject:
	default:
		return nil, nil, fmt.Errorf("--injection-mode must be one of off, warn, reject (got %q)", injectionMode)
	}

	logger, err := logging.NewLogger(o.logLevel, "console")
	if err != nil {
		return nil, nil, err
	}

	svc := services.NewTemplateService(
		sqlparams.NewEngine(sqlparams.WithScanner(scanner)),
		nil,
		audit.NewSecurityAuditor(logger),
		services.TemplateServiceConfig{
			MaxTemplateBytes: o.maxBytes,
			InjectionMode:    injectionMode,
		},
		logger,
	)
	return svc, logger, nil
}

// readTemplate reads the template named by args[0], or stdin when no file or
// "-" is given.
func readTemplate(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}

// trimTrailingNewline drops the newline editors add at end of file so output
// does not gain a blank line.
func trimTrailingNewline(s string) string {
	return strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")
}
