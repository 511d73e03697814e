package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskmanager/internal/config"
	"taskmanager/internal/logging"
	"taskmanager/internal/tasks"
)

type globalOptions struct {
	ConfigPath string
	LogLevel   logging.LogLevel
	DBPath     string
}

func newRootCmd(a *app) *cobra.Command {
	options := globalOptions{}
	cmd := &cobra.Command{
		Use:           "taskman",
		Short:         "Keep a local task list in sync with a remote todo source.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(options.ConfigPath)
			if err != nil {
				return err
			}
			if options.DBPath != "" {
				cfg.Store.Driver = config.DriverSQLite
				cfg.Store.Path = options.DBPath
			}

			level, err := resolveLogLevel(cmd, &options, cfg.Log.Level)
			if err != nil {
				return err
			}
			return a.setup(cfg, level, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&options.ConfigPath, "config", "", "path to a TOML config file (default $TASKMAN_CONFIG or ~/.config/taskman/config.toml)")
	cmd.PersistentFlags().Var(&options.LogLevel, "log-level", "set the log level")
	cmd.PersistentFlags().StringVar(&options.DBPath, "db", "", "path to the sqlite database (overrides store.path)")

	cmd.AddCommand(newSyncCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newToggleCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newUICmd(a))
	return cmd
}

func resolveLogLevel(cmd *cobra.Command, options *globalOptions, configured string) (logging.LogLevel, error) {
	if cmd.Flags().Changed("log-level") {
		return options.LogLevel, nil
	}

	var level logging.LogLevel
	if configured == "" {
		return logging.LogLevelInfo, nil
	}
	if err := level.Set(configured); err != nil {
		return "", fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// statusError turns an Error status into a non-zero exit.
type statusError struct {
	status tasks.Status
}

func (e *statusError) Error() string {
	return e.status.String()
}

func printStatus(w io.Writer, status tasks.Status, extra ...string) error {
	kind := status.Kind
	if kind == "" {
		kind = tasks.StatusEmpty
	}
	line := fmt.Sprintf("status=%s message=%q", kind, status.Message)
	if status.Detail != "" {
		line += fmt.Sprintf(" detail=%q", status.Detail)
	}
	for _, field := range extra {
		line += " " + field
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	if status.IsError() {
		return &statusError{status: status}
	}
	return nil
}
