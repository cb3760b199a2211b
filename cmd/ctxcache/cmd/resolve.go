package cmd

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/gophersatwork/ctxcache"
	"github.com/gophersatwork/ctxcache/internal/config"
)

type resolveOptions struct {
	cache  string
	query  string
	budget int
	format string
	cost   string
}

// newResolveCmd creates the resolve command.
func newResolveCmd(a *app) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Select the documents that best answer a query within a budget",
		Long: `Rank every document in the cache against the query and print the
highest ranked ones whose combined cost fits the budget, as JSON.

The same cache, query and budget always print the same bytes. An empty
query is allowed; every document then scores zero and ties are broken by id.`,
		Example: `  ctxcache resolve --cache .ctxcache --query "deploy kubernetes" --budget 4096
  ctxcache resolve --cache .ctxcache --query auth --budget 800 --cost tokens --format pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("format") {
				opts.format = a.cfg.Resolve.Format
			}
			if !cmd.Flags().Changed("cost") {
				opts.cost = a.cfg.Resolve.Cost
			}
			return a.runResolve(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.cache, "cache", "", "Path to a built cache directory")
	cmd.Flags().StringVar(&opts.query, "query", "", "Search query (empty string is allowed)")
	cmd.Flags().IntVar(&opts.budget, "budget", 0, "Maximum total cost of the selected documents (minimum: 0)")
	cmd.Flags().StringVar(&opts.format, "format", config.FormatJSON, "Output format: json or pretty")
	cmd.Flags().StringVar(&opts.cost, "cost", ctxcache.UnitBytes, "Budget unit: bytes or tokens")
	_ = cmd.MarkFlagRequired("cache")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("budget")

	return cmd
}

func (a *app) runResolve(cmd *cobra.Command, opts resolveOptions) error {
	if !utf8.ValidString(opts.query) {
		return exitf(ExitInvalidQuery, "invalid query: not valid UTF-8")
	}
	if opts.format != config.FormatJSON && opts.format != config.FormatPretty {
		return fmt.Errorf("unknown format %q (want json or pretty)", opts.format)
	}

	costModel, err := newCostModel(opts.cost)
	if err != nil {
		return err
	}

	cache, err := ctxcache.Open(opts.cache, ctxcache.WithFs(a.fs), ctxcache.WithLogger(a.logger))
	if err != nil {
		return fromOpenError(err, opts.cache)
	}

	selector := ctxcache.NewSelector(
		ctxcache.WithCostModel(costModel),
		ctxcache.WithConcurrency(a.cfg.Resolve.Concurrency),
		ctxcache.WithSelectorLogger(a.logger),
	)
	result, err := selector.Select(cmd.Context(), cache, ctxcache.NewQuery(opts.query), opts.budget)
	if err != nil {
		return fromSelectError(err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	if opts.format == config.FormatPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return ioFailure(err)
	}
	return nil
}

func newCostModel(unit string) (ctxcache.CostModel, error) {
	switch unit {
	case ctxcache.UnitBytes:
		return ctxcache.ByteCost{}, nil
	case ctxcache.UnitTokens:
		tc, err := ctxcache.NewTokenCost(0)
		if err != nil {
			return nil, internalFailure(err)
		}
		return tc, nil
	default:
		return nil, fmt.Errorf("unknown cost unit %q (want bytes or tokens)", unit)
	}
}
