package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"grit/internal/config"
	"grit/internal/logging"
	"grit/internal/middleware"
	"grit/internal/repository"
	"grit/internal/workspace"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// logger is shared with the middleware chain; its core is swapped once the
// configured level is known.
var logger = logging.Nop()

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "grit",
	Short:         "grit is a small content-addressed version control system",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogLevel(logLevel)
	},
}

func setLogLevel(level string) error {
	l, err := logging.NewLogger(level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Logger = l.Logger
	return nil
}

// wrap applies the standard middleware chain to a command handler.
func wrap(h middleware.RunE) middleware.RunE {
	return middleware.Chain(h,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.InvocationID,
	)
}

// openRepo opens the repository containing the working directory.
func openRepo(cmd *cobra.Command) (*repository.Repository, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting current directory: %w", err)
	}

	fs := afero.NewOsFs()
	root, err := workspace.FindRoot(fs, cwd)
	if err != nil {
		return nil, "", err
	}

	if !cmd.Flags().Changed("log-level") {
		cfg, err := config.Load(fs, filepath.Join(root, workspace.MetaDir, config.FileName))
		if err != nil {
			return nil, "", err
		}
		if err := setLogLevel(cfg.LogLevel); err != nil {
			return nil, "", err
		}
	}

	repo, err := repository.Open(root, logger.WithInvocationID(cmd.Context()))
	if err != nil {
		return nil, "", err
	}
	return repo, cwd, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newCommitCmd(),
		newLsFilesCmd(),
		newLogCmd(),
		newCatFileCmd(),
		newObjectsCmd(),
		newWatchCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("fatal:"), err)
		os.Exit(1)
	}
}
