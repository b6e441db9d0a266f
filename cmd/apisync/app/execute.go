package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/apisync/internal/cmd/output"
	"github.com/agentstation/apisync/pkg/logging"
)

// Execute runs the apisync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	flags := &Flags{}
	rootCmd := a.createRootCommand(flags)
	rootCmd.SetArgs(args)

	cmd, err := rootCmd.ExecuteContextC(ctx)
	a.finishRun(cmd, err)
	return err
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "apisync",
		Short:   "Reconcile API gateway deployments with OpenAPI definitions",
		Version: a.version,
		Long: `apisync keeps a REST API hosted on a gateway management service in
step with an OpenAPI 3 definition.

It creates a fresh API from a definition, updates an existing API in
place by diffing resources, models and methods, and previews the changes
an update would make. A failed import deletes the partially built API.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	// Add global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "config file (default is $HOME/.apisync.yaml)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
	pf.StringVarP(&flags.Format, "format", "o", "", "output format: table, text, json, yaml")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "management service base URL (env "+EnvPrefix+"_ENDPOINT)")
	pf.StringVar(&flags.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file after the command")

	rootCmd.SetVersionTemplate("apisync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, flags *Flags) error {
	changed := cmd.Flags().Changed

	if changed("config") {
		config, err := LoadConfig(flags.ConfigFile)
		if err != nil {
			return err
		}
		a.config = config
	}
	a.config.UpdateFromFlags(flags, changed)

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return err
	}

	// Reinitialize the default logger with updated config
	logging.Configure(logConfig(a.config))
	logger := *logging.Default()
	a.logger = &logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))
	logging.Debug().Str("command", cmd.CommandPath()).Msg("Command starting")

	return a.enableMetrics()
}

// finishRun records the outcome of the command and writes the metrics file.
func (a *App) finishRun(cmd *cobra.Command, err error) {
	recorder := a.Metrics()
	if recorder == nil {
		return
	}

	name := "apisync"
	if cmd != nil {
		name = cmd.Name()
	}
	recorder.RecordRun(name, err)

	if writeErr := recorder.WriteFile(a.config.MetricsFile); writeErr != nil {
		logging.Warn().Err(writeErr).Str("path", a.config.MetricsFile).Msg("Failed to write metrics file")
		return
	}
	logging.Debug().Str("path", a.config.MetricsFile).Msg("Metrics written")
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
