// Package cmd provides the CLI commands for ctxcache.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/ctxcache/internal/config"
	"github.com/gophersatwork/ctxcache/internal/logging"
)

// app is the state shared by every command of one invocation.
type app struct {
	fs     afero.Fs
	cfg    *config.Config
	logger *slog.Logger

	configPath string
	logLevel   string
}

// NewRootCmd creates the root command for the ctxcache CLI, operating on
// the host filesystem.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{fs: afero.NewOsFs()})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctxcache",
		Short: "Build document caches and resolve bounded context from them",
		Long: `ctxcache compiles a directory of documents into a deterministic,
versioned cache, then selects the best-matching documents for a query
within a byte or token budget.

Build once, resolve many times:

  ctxcache build --sources docs --cache .ctxcache
  ctxcache resolve --cache .ctxcache --query "deploy" --budget 4096`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultFilename+" if present)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newBuildCmd(a))
	cmd.AddCommand(newResolveCmd(a))
	cmd.AddCommand(newInspectCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and builds the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.fs, a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// Execute runs the CLI against the process arguments and returns the exit code.
func Execute() int {
	return run(afero.NewOsFs(), os.Args[1:], os.Stdout, os.Stderr)
}

// run executes one invocation. Errors are printed to stderr as "error: <message>".
func run(fs afero.Fs, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(&app{fs: fs})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
	}
	return ExitCode(err)
}
