package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gophersatwork/ctxcache"
	"github.com/gophersatwork/ctxcache/internal/discover"
)

type buildOptions struct {
	sources string
	cache   string
	version string
	force   bool
}

// newBuildCmd creates the build command.
func newBuildCmd(a *app) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a context cache from source documents",
		Long: `Walk the sources directory, ingest every matching file and write a
cache directory containing one content file per document and a manifest.

The cache directory must not exist unless --force is given, in which case
it is removed first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("version") {
				opts.version = a.cfg.Build.CacheVersion
			}
			return a.runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sources, "sources", "", "Directory containing source documents")
	cmd.Flags().StringVar(&opts.cache, "cache", "", "Output cache directory")
	cmd.Flags().StringVar(&opts.version, "version", ctxcache.DefaultCacheVersion, "Cache version tag written into the manifest")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Remove an existing cache before building")
	_ = cmd.MarkFlagRequired("sources")
	_ = cmd.MarkFlagRequired("cache")

	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, opts buildOptions) error {
	docs, err := discover.Load(a.fs, opts.sources, discover.Options{
		Extensions: a.cfg.Build.Extensions,
		Exclude:    a.cfg.Build.Exclude,
	}, ctxcache.NewAssigner())
	if err != nil {
		return fromDiscoverError(err)
	}

	if opts.force {
		exists, err := afero.Exists(a.fs, opts.cache)
		if err != nil {
			return ioFailure(err)
		}
		if exists {
			a.logger.Info("removing existing cache", "path", opts.cache)
			if err := a.fs.RemoveAll(opts.cache); err != nil {
				return ioFailure(err)
			}
		}
	}

	builder := ctxcache.NewBuilder(
		ctxcache.BuildConfig{Version: opts.version},
		ctxcache.WithFs(a.fs),
		ctxcache.WithLogger(a.logger),
	)
	manifest, err := builder.Build(docs, opts.cache)
	if err != nil {
		return fromBuildError(err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Built cache: %d documents, version %s\n",
		manifest.DocumentCount, manifest.CacheVersion)
	return nil
}
