package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/ctxcache/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Long: `Manage the ctxcache configuration file.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. Config file (` + config.DefaultFilename + ` or --config)
  3. Environment variables (CTXCACHE_*)
  4. Command-line flags`,
		Example: `  # Write a config file with the defaults
  ctxcache config init

  # Show the effective configuration
  ctxcache config show`,
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with the defaults",
		Long: `Write the built-in defaults to ` + config.DefaultFilename + `, or to the
file named by --config.`,
		Args: cobra.NoArgs,
		// The file named by --config may not exist yet, so skip loading it
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func (a *app) runConfigInit(cmd *cobra.Command, force bool) error {
	path := a.configPath
	if path == "" {
		path = config.DefaultFilename
	}

	exists, err := afero.Exists(a.fs, path)
	if err != nil {
		return ioFailure(err)
	}
	if exists && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.NewConfig().WriteYAML(a.fs, path); err != nil {
		return ioFailure(err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.YAML()
			if err != nil {
				return internalFailure(err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
