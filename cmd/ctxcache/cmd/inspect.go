package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/gophersatwork/ctxcache"
)

// newInspectCmd creates the inspect command.
func newInspectCmd(a *app) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show cache version, size and validity",
		Long: `Print a JSON summary of a built cache: its version tag, document count,
the total size of its content files and whether every file recorded in the
manifest is present with its recorded size.

A cache with missing content is reported as invalid rather than failing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := ctxcache.Open(cacheDir, ctxcache.WithFs(a.fs), ctxcache.WithLogger(a.logger))
			if err != nil {
				return fromOpenError(err, cacheDir)
			}

			stats := ctxcache.Inspect(cache)
			if !stats.Valid {
				a.logger.Warn("cache failed verification", "path", cacheDir)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return ioFailure(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache", "", "Path to a built cache directory")
	_ = cmd.MarkFlagRequired("cache")

	return cmd
}
