package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"fixversity/internal/bootstrap/logging"
	"fixversity/internal/errs"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "fixversity",
	Short:        "Campus facilities issue tracker",
	Long:         "Report, assign, resolve and rate campus facilities issues. Runs the HTTP API and a terminal client.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger := logging.NewTextLogger(cmd.ErrOrStderr(), logging.ParseLevel(logLevel))
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	ctx = logging.WithLogger(ctx, logging.NewTextLogger(rootCmd.ErrOrStderr(), slog.LevelInfo))
	ctx = logging.WithAttrs(ctx, slog.String("app", "fixversity"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
}
