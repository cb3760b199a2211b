package ctxcache

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Selection echoes the parameters of a selection so callers can correlate
// a result with its request.
type Selection struct {
	Query      string `json:"query"`
	Budget     int    `json:"budget"`
	Unit       string `json:"unit"`       // Unit of Budget, Used and document costs
	Scorer     string `json:"scorer"`     // Name of the ranking function
	Used       int64  `json:"used"`       // Total cost of the selected documents
	Candidates int    `json:"candidates"` // Number of documents considered
}

// SelectedDocument is one document chosen by a selection.
type SelectedDocument struct {
	ID      DocumentID `json:"id"`
	Source  string     `json:"source"`
	File    string     `json:"file"`
	Size    int64      `json:"size"`
	Cost    int64      `json:"cost"`
	Score   int64      `json:"score"`
	Content string     `json:"content"`
}

// SelectionResult is the outcome of Select. Documents are in selection
// order: highest score first, ties broken by ascending id.
type SelectionResult struct {
	Selection Selection          `json:"selection"`
	Documents []SelectedDocument `json:"documents"`
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithScorer sets the ranking function. The default is NewTermScorer().
func WithScorer(s Scorer) SelectorOption {
	return func(sel *Selector) {
		sel.scorer = s
	}
}

// WithCostModel sets how documents are charged against the budget.
// The default is ByteCost.
func WithCostModel(c CostModel) SelectorOption {
	return func(sel *Selector) {
		sel.cost = c
	}
}

// WithConcurrency bounds how many content files are read at once.
// Values below one select runtime.GOMAXPROCS(0).
func WithConcurrency(n int) SelectorOption {
	return func(sel *Selector) {
		sel.concurrency = n
	}
}

// WithSelectorLogger sets the logger used for debug-level selection summaries.
func WithSelectorLogger(logger *slog.Logger) SelectorOption {
	return func(sel *Selector) {
		sel.logger = logger
	}
}

// Selector ranks cached documents against a query and packs them into a
// budget. A Selector is safe for concurrent use as long as its Scorer and
// CostModel are.
type Selector struct {
	scorer      Scorer
	cost        CostModel
	concurrency int
	logger      *slog.Logger
}

// NewSelector creates a Selector.
func NewSelector(opts ...SelectorOption) *Selector {
	sel := &Selector{
		scorer: NewTermScorer(),
		cost:   ByteCost{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(sel)
	}
	if sel.concurrency < 1 {
		sel.concurrency = runtime.GOMAXPROCS(0)
	}
	return sel
}

// Select runs a selection with the default Selector.
func Select(ctx context.Context, cache *ContextCache, q Query, budget int) (*SelectionResult, error) {
	return NewSelector().Select(ctx, cache, q, budget)
}

// candidate is a scored, costed manifest entry.
type candidate struct {
	entry   DocumentEntry
	content []byte
	score   int64
	cost    int64
}

// Select ranks every document in cache against q and greedily packs the
// ranking into budget. A candidate that does not fit is skipped and later,
// cheaper candidates are still considered. A zero budget always selects
// nothing; a negative budget fails with ErrInvalidBudget.
//
// Every content file is read and checked against the manifest first. A
// missing, unreadable or resized file fails the whole call with
// ErrCacheIntegrity; no partial result is returned.
//
// If ctx is done before every file is read, Select returns ctx.Err()
// as is (context.Canceled or context.DeadlineExceeded), not an *Error.
func (s *Selector) Select(ctx context.Context, cache *ContextCache, q Query, budget int) (*SelectionResult, error) {
	if budget < 0 {
		return nil, newError(ErrInvalidBudget, fmt.Sprintf("%d", budget), fmt.Errorf("budget must not be negative"))
	}
	if cache == nil {
		return nil, newError(ErrCacheIntegrity, "", fmt.Errorf("nil cache"))
	}
	if err := cache.checkManifest(); err != nil {
		return nil, err
	}

	candidates, err := s.load(ctx, cache)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		doc := ScoredDocument{Entry: c.entry, Content: c.content}
		c.score = s.scorer.Score(q, doc)
		cost, err := s.cost.Cost(doc)
		if err != nil {
			return nil, newError(ErrCacheIntegrity, c.entry.File, err)
		}
		if cost < 0 {
			return nil, newError(ErrInvalidBudget, c.entry.File, fmt.Errorf("negative cost %d", cost))
		}
		c.cost = cost
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.entry.ID < b.entry.ID:
			return -1
		case a.entry.ID > b.entry.ID:
			return 1
		}
		return 0
	})

	result := &SelectionResult{
		Selection: Selection{
			Query:      q.String(),
			Budget:     budget,
			Unit:       s.cost.Unit(),
			Scorer:     scorerName(s.scorer),
			Candidates: len(candidates),
		},
		Documents: []SelectedDocument{},
	}

	if budget > 0 {
		limit := int64(budget)
		for _, c := range candidates {
			if c.cost > limit-result.Selection.Used {
				continue
			}
			result.Selection.Used += c.cost
			result.Documents = append(result.Documents, SelectedDocument{
				ID:      c.entry.ID,
				Source:  c.entry.Source,
				File:    c.entry.File,
				Size:    c.entry.Size,
				Cost:    c.cost,
				Score:   c.score,
				Content: string(c.content),
			})
		}
	}

	s.logger.Debug("selection complete",
		slog.String("root", cache.root),
		slog.String("query", q.String()),
		slog.Int("budget", budget),
		slog.Int("candidates", len(candidates)),
		slog.Int("selected", len(result.Documents)),
		slog.Int64("used", result.Selection.Used))

	return result, nil
}

// load reads every content file of the cache concurrently. Errors are
// reported for the first failing entry in manifest order, so the returned
// error does not depend on scheduling.
func (s *Selector) load(ctx context.Context, cache *ContextCache) ([]candidate, error) {
	entries := cache.manifest.Documents
	candidates := make([]candidate, len(entries))
	errs := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := cache.readContent(entry)
			if err != nil {
				errs[i] = err
				return nil
			}
			candidates[i] = candidate{entry: entry, content: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return candidates, nil
}
