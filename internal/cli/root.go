// Package cli provides the command-line interface for sandpaper.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbroadley/sandpaper/internal/config"
	"github.com/tbroadley/sandpaper/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type configKey struct{}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:   "sandpaper",
		Short: "Normalize tabular files with reusable rule-sets",
		Long: `sandpaper runs an ordered chain of normalization rules (strip, lower,
translate_date, add_columns, ...) over every record of a table and writes
the result to a destination of any supported kind.

Rule-sets are YAML files; see "sandpaper rules" for the available rules.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if verbose {
				cfg.LogLevel = "debug"
			}

			issues := config.Validate(*cfg)
			for _, iss := range issues {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if err := config.Errors(issues); err != nil {
				return err
			}

			log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if used != "" {
				log.Debug("config: loaded", "file", used)
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = logging.WithLogger(ctx, log)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")
	pf.String("line-terminator", "", "line ending of text destinations (os|lf|crlf)")
	pf.Int("jobs", 1, "files processed concurrently in batch mode")
	pf.String("metrics-backend", "", "metrics backend (none|pushgateway|datadog)")
	pf.String("pushgateway-url", "", "Prometheus Pushgateway base URL")
	pf.String("datadog-addr", "", "DogStatsD address, e.g. 127.0.0.1:8125")
	pf.String("metrics-job", "", "job label attached to metrics")

	_ = root.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("metrics-backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"none", "pushgateway", "datadog"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newApplyCommand())
	root.AddCommand(newRulesCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// configFrom returns the configuration stored by the root command, or the
// defaults when a command runs without it (as in unit tests).
func configFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		LogLevel:       "info",
		LogFormat:      "text",
		LineTerminator: "os",
		Jobs:           1,
		Reader:         config.Options{},
		Metrics:        config.Metrics{Backend: "none", Job: "sandpaper"},
	}
}
